package notecard

import (
	"context"
	"errors"
	"testing"
)

var errWire = errors.New("wire broke")

func TestSessionTransact(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*MockTransport)
		req        Request
		wantErr    error
		wantDevice bool
	}{
		{
			name: "success",
			setup: func(m *MockTransport) {
				m.Respond(ReqCardTime, `{"time":1700000000,"zone":"UTC"}`)
			},
			req: NewRequest(ReqCardTime),
		},
		{
			name:    "exchange failure",
			setup:   func(m *MockTransport) { m.Fail(ReqHubSync, errWire) },
			req:     NewRequest(ReqHubSync),
			wantErr: errWire,
		},
		{
			name:       "device error",
			setup:      func(m *MockTransport) { m.Respond(ReqNoteAdd, `{"err":"no notefile"}`) },
			req:        NewRequest(ReqNoteAdd),
			wantErr:    ErrDeviceError,
			wantDevice: true,
		},
		{
			name:    "garbled response",
			setup:   func(m *MockTransport) { m.Respond(ReqCardTime, `{"time":`) },
			req:     NewRequest(ReqCardTime),
			wantErr: ErrTransactionFailed,
		},
		{
			name:    "missing req",
			setup:   func(*MockTransport) {},
			req:     Request{"body": 1},
			wantErr: ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockTransport()
			tt.setup(mock)
			sess := NewSession(mock)

			resp, err := sess.Transact(context.Background(), tt.req)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Transact() error = %v", err)
				}
				if ts, ok := resp.Time(); !ok || ts != 1700000000 {
					t.Errorf("Time() = %v, %v; want 1700000000, true", ts, ok)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Transact() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrTransactionFailed) {
				t.Errorf("Transact() error %v does not match ErrTransactionFailed", err)
			}
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("Transact() error %T is not *TransportError", err)
			}
			if tt.wantDevice && resp.Err() == "" {
				t.Error("expected device response to be returned alongside the error")
			}
		})
	}
}

func TestSessionClose(t *testing.T) {
	mock := NewMockTransport()
	sess := NewSession(mock)

	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	_, err := sess.Transact(context.Background(), NewRequest(ReqHubSync))
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Transact() after Close error = %v, want ErrSessionClosed", err)
	}
}

func TestHubConfigRequest(t *testing.T) {
	req := HubConfig{Product: "com.example:test", SerialNumber: "burton_158"}.Request()

	want := map[string]any{
		"req":      ReqHubSet,
		"product":  "com.example:test",
		"sn":       "burton_158",
		"mode":     DefaultHubMode,
		"outbound": DefaultHubOutbound,
		"inbound":  DefaultHubInbound,
	}
	for k, v := range want {
		if req[k] != v {
			t.Errorf("req[%q] = %v, want %v", k, req[k], v)
		}
	}
}

func TestConfigureRestoreFirst(t *testing.T) {
	mock := NewMockTransport()
	sess := NewSession(mock)

	err := Configure(context.Background(), sess, HubConfig{Product: "p", Restore: true})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	reqs := mock.Requests()
	if len(reqs) != 2 || reqs[0].Name() != ReqCardRestore || reqs[1].Name() != ReqHubSet {
		t.Errorf("requests = %v, want [card.restore hub.set]", reqs)
	}
}
