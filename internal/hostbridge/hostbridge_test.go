package hostbridge_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nullsafe/supercel/internal/hostbridge"
)

func TestDirectBridgeDispatch(t *testing.T) {
	bridge := hostbridge.DirectBridge{
		Computed: func(ctx context.Context, name, argsJSON string) (string, error) {
			return `{"type":"int","value":7}`, nil
		},
		Device: func(ctx context.Context, name, argsJSON string) (string, error) {
			return "null", nil
		},
	}
	got, err := bridge.ComputedProperty(context.Background(), "total", "[]")
	if err != nil || got != `{"type":"int","value":7}` {
		t.Errorf("ComputedProperty = (%q, %v)", got, err)
	}
	got, err = bridge.DeviceProperty(context.Background(), "battery", "[]")
	if err != nil || got != "null" {
		t.Errorf("DeviceProperty = (%q, %v)", got, err)
	}
}

func TestDirectBridgeMissingHandler(t *testing.T) {
	var bridge hostbridge.DirectBridge
	if _, err := bridge.ComputedProperty(context.Background(), "x", "[]"); err == nil {
		t.Error("expected error for unregistered computed handler")
	}
	if _, err := bridge.DeviceProperty(context.Background(), "x", "[]"); err == nil {
		t.Error("expected error for unregistered device handler")
	}
}

// recordingSubmitter stands in for a host that completes a call from a
// different goroutine than the one blocked in ChannelBridge.call, exercising
// the same cross-goroutine rendezvous a real async host would trigger.
type recordingSubmitter struct {
	bridge *hostbridge.ChannelBridge
}

func (s *recordingSubmitter) Submit(id, kind, name, argsJSON string) {
	go s.bridge.Complete(id, `{"type":"bool","value":true}`, nil)
}

func TestChannelBridgeRoundTrip(t *testing.T) {
	sub := &recordingSubmitter{}
	bridge := hostbridge.NewChannelBridge(sub)
	sub.bridge = bridge

	got, err := bridge.DeviceProperty(context.Background(), "online", "[]")
	if err != nil {
		t.Fatalf("DeviceProperty: %v", err)
	}
	if got != `{"type":"bool","value":true}` {
		t.Errorf("got %q", got)
	}
}

func TestChannelBridgeContextCancellation(t *testing.T) {
	sub := &noopSubmitter{}
	bridge := hostbridge.NewChannelBridge(sub)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := bridge.ComputedProperty(ctx, "never", "[]")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

type noopSubmitter struct{}

func (noopSubmitter) Submit(id, kind, name, argsJSON string) {}

// TestChannelBridgeConcurrentCalls drives many concurrent in-flight calls to
// exercise the mutex guarding the pending map: without it, this test would
// be flagged by the race detector.
func TestChannelBridgeConcurrentCalls(t *testing.T) {
	sub := &recordingSubmitter{}
	bridge := hostbridge.NewChannelBridge(sub)
	sub.bridge = bridge

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := bridge.DeviceProperty(context.Background(), "online", "[]")
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestChannelBridgeUnknownCompleteIsNoop(t *testing.T) {
	bridge := hostbridge.NewChannelBridge(&noopSubmitter{})
	bridge.Complete("no-such-id", "null", nil)
}
