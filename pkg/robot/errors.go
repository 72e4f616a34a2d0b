package robot

import "errors"

var (
	// ErrNotCalibrated is returned when the light or dark reference is missing.
	ErrNotCalibrated = errors.New("light sensor not calibrated")

	// ErrDividerUnset is returned when the steering can turn but the
	// steering divider has not been configured.
	ErrDividerUnset = errors.New("steering divider not configured")
)
