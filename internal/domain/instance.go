package domain

import "time"

// InstanceInfo describes one running instance of the service.
type InstanceInfo struct {
	InstanceID  string    `json:"instance_id"`
	Version     string    `json:"version"`
	Connections int       `json:"connections"`
	LastSeen    time.Time `json:"last_seen"`
}
