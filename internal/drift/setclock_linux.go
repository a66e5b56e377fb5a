//go:build linux

package drift

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// SystemClockSetter sets the host clock with settimeofday(2). It needs
// CAP_SYS_TIME or root.
type SystemClockSetter struct{}

// SetClock sets the host wall clock to t.
func (SystemClockSetter) SetClock(t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	if err := unix.Settimeofday(&tv); err != nil {
		return fmt.Errorf("%w: %w", ErrClockSet, err)
	}
	return nil
}
