package scheduler

import "errors"

var (
	// ErrSweepInProgress is returned when a sweep is requested while one is running
	ErrSweepInProgress = errors.New("expiry sweep already in progress")

	// ErrInvalidConfig is returned when the trigger configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
