// Package model holds the data types shared across the gateway: device and
// module identifiers, sensor readings, commands, and the message envelope
// exchanged with the server.
package model

import "errors"

// Sentinel error kinds the core distinguishes, per the error handling design.
// Wrap one of these with fmt.Errorf("...: %w", ErrX) to add context; test
// with errors.Is.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrIllegalState     = errors.New("illegal state")
	ErrTimeout          = errors.New("timeout")
	ErrIO               = errors.New("io error")
	ErrWriteFile        = errors.New("write file error")
	ErrFileAccessDenied = errors.New("file access denied")
	ErrFileReadOnly     = errors.New("file read-only")
	ErrProtocol         = errors.New("protocol error")
	ErrConnection       = errors.New("connection error")
)
