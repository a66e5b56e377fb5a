package batch

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the compressor applied to the CBOR batch.
type Compression string

// Supported compressions.
const (
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
	CompressionNone Compression = "none"
)

// ParseCompression validates a compression name. An empty name selects zstd.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionZstd:
		return CompressionZstd, nil
	case CompressionLZ4:
		return CompressionLZ4, nil
	case CompressionNone:
		return CompressionNone, nil
	default:
		return "", fmt.Errorf("%w: compression %q", ErrUnknownFormat, name)
	}
}

// maxDecodedSize bounds decompression of untrusted bodies. Encode refuses
// batches whose CBOR form is larger, so every encoded body decodes.
const maxDecodedSize = 1 << 30

// zstd.Encoder and zstd.Decoder are safe for concurrent use; EncodeAll is
// deterministic for a fixed encoder configuration.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic("batch: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxDecodedSize),
	)
	if err != nil {
		panic("batch: zstd decoder initialization failed: " + err.Error())
	}
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionLZ4:
		return compressLZ4(data)
	case CompressionNone:
		return data, nil
	default:
		return nil, fmt.Errorf("%w: compression %q", ErrUnknownFormat, c)
	}
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		return decompressLZ4(data)
	case CompressionNone:
		return data, nil
	default:
		return nil, fmt.Errorf("%w: compression %q", ErrUnknownFormat, c)
	}
}

// LZ4 uses the frame format so small, incompressible batches still encode.

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
		return nil, fmt.Errorf("lz4 options: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if len(out) > maxDecodedSize {
		return nil, fmt.Errorf("lz4 decompress: exceeds %d bytes", maxDecodedSize)
	}
	return out, nil
}
