// Package batch encodes a drained batch of readings into the compact,
// text-safe body carried by a note.add request.
//
// # Wire format
//
// The ordered readings are serialised as a CBOR array of
// [timestamp, sensor_id, value] tuples using Core Deterministic Encoding
// (RFC 8949 §4.2), compressed, then base64 encoded (standard alphabet, padded).
// The resulting Body names its format so Notehub-side decoders can pick the
// right path:
//
//	ts_id_val_zstd   zstd frame (default)
//	ts_id_val_lz4    lz4 frame
//	ts_id_val_none   uncompressed CBOR
//
// Encoding is a pure function of the input order and contents: the same
// readings always produce byte-identical bodies.
//
// Decode is the inverse and exists for tests and for hub-side tooling.
package batch
