package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.2.0", Commit: "0123456789abcdef", BuildTime: "2026-01-02T03:04:05Z", GoVersion: "go1.24.0"}
	assert.Equal(t, "roomhub v1.2.0 (0123456, built 2026-01-02T03:04:05Z, go1.24.0)", info.String())
}
