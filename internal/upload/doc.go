// Package upload flushes buffered readings to Notehub through the Notecard.
//
// It has two parts.
//
// # Coordinator
//
// Coordinator.RunCycle performs one flush cycle:
//
//	open session → correct time → drain queue → apply drift → encode
//	→ note.add → hub.sync
//
// Opening blocks until the device answers. An empty drain ends the cycle with
// ErrNothingToUpload before any note is added. A failure in encoding,
// note.add or hub.sync fails the cycle.
//
// When a cycle fails before note.add succeeded, the drained readings are put
// back at the head of the queue (unless RequeueOnFailure is off, in which case
// they are dropped and the loss is logged). When note.add succeeded but
// hub.sync failed, the note is already stored on the Notecard, so the batch is
// not added again; the next cycle re-issues hub.sync first.
//
// # Scheduler
//
// Scheduler polls every two seconds. Once the upload period has elapsed and
// the queue holds readings, it runs cycles back to back, three seconds
// apart, until one succeeds, then schedules the next upload one period later.
// A due check that finds the queue empty leaves the schedule untouched, so the
// next reading to arrive is flushed on the following poll.
//
// Only one flush runs at a time. A tick that arrives mid-flush is skipped.
//
// # Observers
//
// Recorders receive every finished cycle. The relay uses them for the SQLite
// flush journal and the InfluxDB mirror. Recorder errors are logged only.
//
// # Health
//
// HealthReporter publishes a retained JSON status message over MQTT on a
// fixed interval.
package upload
