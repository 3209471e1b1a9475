package config

import "errors"

var (
	// ErrVersionMismatch indicates the config file was written for a
	// different release of the controllers.
	ErrVersionMismatch = errors.New("config: version mismatch")

	// ErrOutOfRange indicates a parameter outside its valid range.
	ErrOutOfRange = errors.New("config: parameter out of valid range")
)
