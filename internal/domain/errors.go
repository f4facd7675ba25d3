package domain

import "errors"

var (
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrUnauthorized        = errors.New("not allowed to join room")
	ErrDuplicateConnection = errors.New("connection is already registered")
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrInvalidBroadcast    = errors.New("invalid broadcast")
)
