package notecard

import (
	"bytes"
	"context"
	"testing"
	"time"
)

// fakeI2C emulates the Notecard side of the I2C framing.
type fakeI2C struct {
	received []byte
	pending  []byte
	asked    int
	reply    []byte
}

func (f *fakeI2C) Tx(w, r []byte) error {
	if len(w) > 0 {
		if w[0] == 0 && len(w) == 2 {
			f.asked = int(w[1])
			return nil
		}
		f.received = append(f.received, w[1:1+int(w[0])]...)
		if bytes.HasSuffix(f.received, []byte("\n")) {
			f.pending = append(f.pending, f.reply...)
		}
		return nil
	}

	n := min(f.asked, len(f.pending))
	r[0] = byte(min(len(f.pending)-n, 255))
	r[1] = byte(n)
	copy(r[2:], f.pending[:n])
	f.pending = f.pending[n:]
	return nil
}

func TestI2CExchangeChunksAndReassembles(t *testing.T) {
	reply := append(bytes.Repeat([]byte("x"), 300), '\n')
	dev := &fakeI2C{reply: reply}
	tr := newI2CTransport(dev, nil, time.Second)

	request := append(bytes.Repeat([]byte("r"), 600), '\n')
	got, err := tr.Exchange(context.Background(), request)
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	if !bytes.Equal(dev.received, request) {
		t.Errorf("device received %d bytes, want %d", len(dev.received), len(request))
	}
	if !bytes.Equal(got, reply[:300]) {
		t.Errorf("Exchange() returned %d bytes, want 300", len(got))
	}
}
