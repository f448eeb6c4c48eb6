package testutil

import (
	"context"
	"net/http"
	"sync"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/transport"
)

// Reply is a canned transport outcome.
type Reply struct {
	Status  int
	Payload ir.Value
	Err     error
}

// OK returns a 200 reply carrying payload inside the envelope.
func OK(payload ir.Object) Reply {
	return Reply{Status: http.StatusOK, Payload: ir.NewObject(ir.O("winstrom", payload))}
}

// Created returns a 201 reply carrying payload inside the envelope.
func Created(payload ir.Object) Reply {
	return Reply{Status: http.StatusCreated, Payload: ir.NewObject(ir.O("winstrom", payload))}
}

// NotFound returns a 404 reply, reported the way transport.Client does.
func NotFound() Reply {
	return Reply{
		Status:  http.StatusNotFound,
		Payload: ir.NewObject(ir.O("winstrom", ir.NewObject(ir.O("success", ir.String("false"))))),
		Err:     transport.ErrRecordNotFound,
	}
}

// RecordingTransport is a fake transport that records every request and
// answers with queued replies in order.
//
// It satisfies engine.Transport. When the queue is empty it answers
// 200 with an empty envelope.
//
// Thread-safety: RecordingTransport is safe for concurrent use.
type RecordingTransport struct {
	mu       sync.Mutex
	requests []transport.Request
	replies  []Reply
}

// NewRecordingTransport creates a transport answering with replies in order.
func NewRecordingTransport(replies ...Reply) *RecordingTransport {
	return &RecordingTransport{replies: replies}
}

// Queue appends replies.
func (t *RecordingTransport) Queue(replies ...Reply) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, replies...)
}

// Send records req and returns the next queued reply.
func (t *RecordingTransport) Send(ctx context.Context, req transport.Request) (transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return transport.Response{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)

	if len(t.replies) == 0 {
		return transport.Response{Status: http.StatusOK, Payload: ir.NewObject(ir.O("winstrom", ir.Object{}))}, nil
	}
	r := t.replies[0]
	t.replies = t.replies[1:]
	return transport.Response{Status: r.Status, Payload: r.Payload}, r.Err
}

// Drain discards queued replies and reports how many were left.
func (t *RecordingTransport) Drain() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.replies)
	t.replies = nil
	return n
}

// Requests returns a copy of the recorded requests.
func (t *RecordingTransport) Requests() []transport.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]transport.Request, len(t.requests))
	copy(out, t.requests)
	return out
}

// Last returns the most recent request, or false when nothing was sent.
func (t *RecordingTransport) Last() (transport.Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return transport.Request{}, false
	}
	return t.requests[len(t.requests)-1], true
}
