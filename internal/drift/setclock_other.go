//go:build !linux

package drift

import (
	"fmt"
	"runtime"
	"time"
)

// SystemClockSetter is unsupported on this platform.
type SystemClockSetter struct{}

// SetClock always fails here.
func (SystemClockSetter) SetClock(time.Time) error {
	return fmt.Errorf("%w: unsupported on %s", ErrClockSet, runtime.GOOS)
}
