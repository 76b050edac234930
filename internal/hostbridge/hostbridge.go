// Package hostbridge implements the synchronous host adapter of spec §4.6:
// computed_property/device_property calls are presented to the evaluator as
// a blocking call, even when the underlying host only offers a
// completion-style callback.
package hostbridge

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Bridge is the evaluator's view of the host: two synchronous operations,
// each returning a JSON-encoded wire value (or the literal "null") as text.
type Bridge interface {
	ComputedProperty(ctx context.Context, name string, argsJSON string) (string, error)
	DeviceProperty(ctx context.Context, name string, argsJSON string) (string, error)
}

// PropertyFunc answers a single property call synchronously. DirectBridge
// wraps two of these for hosts that can already block the calling
// goroutine — no one-shot rendezvous is needed in that case.
type PropertyFunc func(ctx context.Context, name string, argsJSON string) (string, error)

// DirectBridge realises Bridge for a host that can answer synchronously in
// the same call stack, e.g. an in-process test double or an embedder that
// has no async boundary to cross.
type DirectBridge struct {
	Computed PropertyFunc
	Device   PropertyFunc
}

func (d DirectBridge) ComputedProperty(ctx context.Context, name, argsJSON string) (string, error) {
	if d.Computed == nil {
		return "", fmt.Errorf("hostbridge: no computed_property handler registered")
	}
	return d.Computed(ctx, name, argsJSON)
}

func (d DirectBridge) DeviceProperty(ctx context.Context, name, argsJSON string) (string, error) {
	if d.Device == nil {
		return "", fmt.Errorf("hostbridge: no device_property handler registered")
	}
	return d.Device(ctx, name, argsJSON)
}

// reply is the one-shot rendezvous between a call issued by the evaluator
// and the answer delivered later by the host, the Go equivalent of the
// original's single-producer/single-consumer CallbackFuture built on a
// Mutex<Option<Waker>>: a buffered channel of size 1 plays the same role
// without needing an explicit waker, since a blocked receive on the channel
// already parks the goroutine until the single send arrives.
type reply struct {
	text string
	err  error
}

// Submitter is how a ChannelBridge hands a pending call to the host: the
// host eventually calls Complete(id, text, err) exactly once.
type Submitter interface {
	Submit(id, kind, name, argsJSON string)
}

// ChannelBridge realises Bridge over a callback-style host: Submit hands the
// call to the host (e.g. posting it across a process or thread boundary),
// and the host must later call Complete with the same id exactly once.
// Verbose gates the stdlib-log correlation-id tracing.
type ChannelBridge struct {
	submitter Submitter
	mu        sync.Mutex
	pending   map[string]chan reply
	Verbose   bool
}

// NewChannelBridge wires a ChannelBridge to a host's Submitter.
func NewChannelBridge(submitter Submitter) *ChannelBridge {
	return &ChannelBridge{submitter: submitter, pending: make(map[string]chan reply)}
}

func (c *ChannelBridge) call(ctx context.Context, kind, name, argsJSON string) (string, error) {
	id := uuid.NewString()
	ch := make(chan reply, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	if c.Verbose {
		log.Printf("supercel: host call %s(%s) id=%s args=%s", name, kind, id, argsJSON)
	}
	c.submitter.Submit(id, kind, name, argsJSON)
	select {
	case r := <-ch:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		if c.Verbose {
			log.Printf("supercel: host reply id=%s err=%v", id, r.err)
		}
		return r.text, r.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return "", ctx.Err()
	}
}

// Complete delivers the host's reply for a previously submitted call. It is
// a no-op if id is unknown (already completed, or never issued), preserving
// the "exactly one reply per call" guarantee even under a duplicate or
// stray completion. Safe to call from a different goroutine than the one
// blocked in call, which is the whole point of the rendezvous.
func (c *ChannelBridge) Complete(id string, text string, err error) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return
	}
	ch <- reply{text: text, err: err}
}

func (c *ChannelBridge) ComputedProperty(ctx context.Context, name, argsJSON string) (string, error) {
	return c.call(ctx, "computed", name, argsJSON)
}

func (c *ChannelBridge) DeviceProperty(ctx context.Context, name, argsJSON string) (string, error) {
	return c.call(ctx, "device", name, argsJSON)
}
