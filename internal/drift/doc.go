// Package drift corrects reading timestamps for disagreement between the
// host clock and the Notecard's clock.
//
// The host may run without network time (a Raspberry Pi with no RTC, for
// example), so every reading it stamps can be off by the same amount. Once
// per flush the Corrector asks the Notecard for its time, computes
// offset = device_time - host_now, and shifts every drained timestamp by that
// offset, rounded to a tenth of a second.
//
// Offsets smaller than the threshold (10 seconds by default) are treated as
// noise and clamped to zero. When the offset is real and host clock
// correction is enabled, the Corrector also tries to set the host clock to the
// device time. That step is best effort: failure is logged and ignored.
//
// A card.time request that fails, or that answers without a time field
// (the Notecard has not yet synced with Notehub), yields an offset of zero.
package drift
