package drift

import "errors"

// ErrClockSet is returned by a ClockSetter that could not change the host
// clock. The Corrector logs it and carries on.
var ErrClockSet = errors.New("drift: setting host clock failed")
