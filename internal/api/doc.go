// Package api implements the relay's HTTP boundary.
//
// This package provides:
//   - The ingestion endpoint (POST /minimon by default) replying "<n>\n"
//   - A JSON ingestion endpoint (POST /api/v1/readings)
//   - Operational endpoints: health, metrics, flush-now and the flush journal
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// Handlers only enqueue readings or read state; no request ever waits on the
// Notecard. A malformed payload is rejected whole with 400 and enqueues
// nothing.
//
// # Routes
//
//	POST /minimon               {"readings": [[ts, id, val], ...]} -> "3\n"
//	POST /api/v1/readings       same body -> {"accepted": 3}
//	GET  /api/v1/health         relay health and component checks
//	GET  /api/v1/metrics        runtime, HTTP, upload and Notecard counters
//	POST /api/v1/flush          make an upload due now -> 202
//	GET  /api/v1/cycles?limit=N recent flush cycles (journal enabled only)
//
// The server follows the same lifecycle pattern as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
