package types

import "errors"

var (
	// ErrResolution means the public address could not be determined
	ErrResolution = errors.New("address resolution failed")
	// ErrDelivery means a notification could not be delivered
	ErrDelivery = errors.New("notification delivery failed")
	// ErrWrite means the monitoring state could not be persisted
	ErrWrite = errors.New("state write failed")
	// ErrStartupConfig means required configuration is missing or malformed
	ErrStartupConfig = errors.New("invalid startup configuration")
	// ErrInvalidDriver means the configured store driver is unknown
	ErrInvalidDriver = errors.New("invalid store driver")
)
