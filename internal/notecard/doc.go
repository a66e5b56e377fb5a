// Package notecard talks to a Blues Notecard over serial or I2C.
//
// The Notecard is a cellular bridge that accepts newline-terminated JSON
// requests and answers each with one JSON object. This package treats that
// exchange as an opaque request/response RPC and exposes two capabilities:
//
//   - Opener.Open acquires a fresh Session. It retries on a fixed interval
//     until the device answers, logging each failure, and only gives up when
//     its context is cancelled at shutdown.
//   - Session.Transact performs one request/response exchange. It never
//     retries; callers decide whether a failure is fatal for their cycle.
//
// # Transports
//
// Two transports are supported:
//
//   - "serial": a UART or USB-serial port (default /dev/ttyUSB0 at 9600 baud).
//   - "i2c": the Notecard I2C protocol on a periph.io bus (default address 0x17).
//
// Sessions are never pooled. The Notecard may sleep between uploads, so each
// flush opens a new session and closes it when done.
//
// # Usage
//
//	opener := notecard.NewOpener(notecard.Config{
//	    Kind:     notecard.KindSerial,
//	    Endpoint: "/dev/ttyUSB0",
//	})
//	sess, err := opener.Open(ctx) // only fails if ctx is cancelled
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	resp, err := sess.Transact(ctx, notecard.NewRequest("card.time"))
//
// # Thread Safety
//
// Opener and Session are safe for concurrent use, but a Session serialises
// transactions: the device handles one request at a time.
package notecard
