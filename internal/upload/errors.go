package upload

import "errors"

// Domain errors for the upload package.
var (
	// ErrNothingToUpload is returned by RunCycle when the drain finds the
	// queue empty. It is not a failure.
	ErrNothingToUpload = errors.New("upload: nothing to upload")

	// ErrAddFailed is returned when note.add fails.
	ErrAddFailed = errors.New("upload: note.add failed")

	// ErrSyncFailed is returned when hub.sync fails.
	ErrSyncFailed = errors.New("upload: hub.sync failed")

	// ErrFlushInProgress is returned by Tick when another flush is running.
	ErrFlushInProgress = errors.New("upload: flush already in progress")
)
