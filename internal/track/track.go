// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package track correlates outbound requests with the stanzas that answer
// them.
//
// Requests are keyed by stanza ID and may optionally be scoped to a room so
// that every request belonging to the room can be failed at once when the room
// is left or destroyed.
// Each request is wrapped in a tracing span that ends when the request is
// resolved, times out, or is canceled.
package track // import "mellium.im/muc/internal/track"

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrTimeout is returned when no response arrives before the deadline given to
// a waiter or callback.
var ErrTimeout = errors.New("muc: timed out waiting for a response")

// Response is the answer to a tracked request.
// If Err is set the remaining fields may be empty.
type Response struct {
	// Start is the start element of the stanza that resolved the request.
	Start xml.StartElement

	// Payload holds copies of the tokens between the start element and its
	// matching end element.
	Payload []xml.Token

	Err error
}

// Reader returns a token reader over the full stanza, including its start and
// end elements.
func (r Response) Reader() xml.TokenReader {
	if r.Start.Name.Local == "" {
		return &tokens{}
	}
	toks := make(tokens, 0, len(r.Payload)+2)
	toks = append(toks, r.Start.Copy())
	toks = append(toks, r.Payload...)
	toks = append(toks, r.Start.End())
	return &toks
}

// Capture copies the remaining tokens of a stanza from r into a Response.
// The reader is expected to return the inner tokens of the element started by
// start followed by its end element (or io.EOF).
func Capture(start xml.StartElement, r xml.TokenReader) (Response, error) {
	resp := Response{Start: start.Copy()}
	depth := 0
	for {
		tok, err := r.Token()
		if tok != nil {
			switch t := tok.(type) {
			case xml.StartElement:
				depth++
			case xml.EndElement:
				if depth == 0 && t.Name.Local == start.Name.Local {
					return resp, nil
				}
				depth--
			}
			resp.Payload = append(resp.Payload, xml.CopyToken(tok))
		}
		switch {
		case err == io.EOF:
			return resp, nil
		case err != nil:
			return resp, err
		}
	}
}

type tokens []xml.Token

func (t *tokens) Token() (xml.Token, error) {
	if len(*t) == 0 {
		return nil, io.EOF
	}
	var tok xml.Token
	tok, *t = (*t)[0], (*t)[1:]
	return tok, nil
}

type entry struct {
	scope string
	c     chan Response
	f     func(Response)
	timer *time.Timer
	span  trace.Span
}

func (e *entry) end(err error) {
	if err != nil {
		e.span.RecordError(err)
		e.span.SetStatus(codes.Error, err.Error())
	} else {
		e.span.SetStatus(codes.Ok, "")
	}
	e.span.End()
}

// Tracker holds outstanding requests.
// The zero value is not usable, use New.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]*entry
	tracer  trace.Tracer
}

// New returns a tracker that records spans using tracer.
// If tracer is nil spans are discarded.
func New(tracer trace.Tracer) *Tracker {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Tracker{
		pending: make(map[string]*entry),
		tracer:  tracer,
	}
}

func (t *Tracker) add(ctx context.Context, id, scope, op string, e *entry) {
	_, e.span = t.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("xmpp.stanza.id", id),
		attribute.String("muc.room", scope),
	))
	e.scope = scope
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.pending[id]; ok {
		// Reusing an ID replaces the previous request.
		t.finish(old, Response{Err: ErrTimeout}, false)
	}
	t.pending[id] = e
}

// remove deletes the entry for id if it is still e.
// It reports whether the entry was removed by this call.
func (t *Tracker) remove(id string, e *entry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.pending[id]
	if !ok || cur != e {
		return false
	}
	delete(t.pending, id)
	if e.timer != nil {
		e.timer.Stop()
	}
	return true
}

func (t *Tracker) finish(e *entry, resp Response, invoke bool) {
	e.end(resp.Err)
	if e.c != nil {
		e.c <- resp
		return
	}
	if invoke && e.f != nil {
		e.f(resp)
	}
}

// Register starts tracking a request with the given stanza ID.
// It must be called before the request is sent so that a fast response is not
// missed.
func (t *Tracker) Register(ctx context.Context, id, scope, op string) *Waiter {
	e := &entry{c: make(chan Response, 1)}
	t.add(ctx, id, scope, op, e)
	return &Waiter{t: t, id: id, e: e}
}

// Callback starts tracking a request whose response is delivered to f instead
// of a waiter.
// If no response arrives within timeout f is called with ErrTimeout.
// If the request is canceled f is never called.
// f is called at most once.
func (t *Tracker) Callback(ctx context.Context, id, scope, op string, timeout time.Duration, f func(Response)) {
	e := &entry{f: f}
	t.add(ctx, id, scope, op, e)
	if timeout > 0 {
		t.mu.Lock()
		e.timer = time.AfterFunc(timeout, func() {
			if t.remove(id, e) {
				t.finish(e, Response{Err: ErrTimeout}, true)
			}
		})
		t.mu.Unlock()
	}
}

// Pending reports whether a request with the given ID is outstanding.
func (t *Tracker) Pending(id string) bool {
	if id == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[id]
	return ok
}

// Len returns the number of outstanding requests.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Resolve delivers resp to the request with the given ID.
// It reports whether such a request was outstanding.
func (t *Tracker) Resolve(id string, resp Response) bool {
	t.mu.Lock()
	e, ok := t.pending[id]
	t.mu.Unlock()
	if !ok || !t.remove(id, e) {
		return false
	}
	t.finish(e, resp, true)
	return true
}

// Drop stops tracking the request with the given ID without delivering a
// response to it.
// It reports whether such a request was outstanding.
func (t *Tracker) Drop(id string, err error) bool {
	t.mu.Lock()
	e, ok := t.pending[id]
	t.mu.Unlock()
	if !ok || !t.remove(id, e) {
		return false
	}
	e.end(err)
	return true
}

// Cancel fails every outstanding request in scope with err.
// Waiters receive err, callbacks are dropped without being called.
// It returns the number of requests canceled.
func (t *Tracker) Cancel(scope string, err error) int {
	t.mu.Lock()
	var canceled []*entry
	for id, e := range t.pending {
		if e.scope != scope {
			continue
		}
		delete(t.pending, id)
		if e.timer != nil {
			e.timer.Stop()
		}
		canceled = append(canceled, e)
	}
	t.mu.Unlock()

	for _, e := range canceled {
		t.finish(e, Response{Err: err}, false)
	}
	return len(canceled)
}

// Waiter is a handle on a single outstanding request.
type Waiter struct {
	t  *Tracker
	id string
	e  *entry
}

// ID returns the stanza ID being waited on.
func (w *Waiter) ID() string {
	return w.id
}

// Wait blocks until the request is resolved, canceled, the timeout elapses, or
// ctx is done.
// A timeout of zero means only ctx bounds the wait.
// If the response carries an error it is returned along with the response.
func (w *Waiter) Wait(ctx context.Context, timeout time.Duration) (Response, error) {
	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	var err error
	select {
	case resp := <-w.e.c:
		return resp, resp.Err
	case <-timeoutC:
		err = ErrTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}

	if !w.t.remove(w.id, w.e) {
		// Resolved concurrently, the response is already on its way.
		resp := <-w.e.c
		return resp, resp.Err
	}
	w.e.end(err)
	return Response{Err: err}, err
}

// Discard stops tracking the request without resolving it.
// It is used when the request could not be sent.
func (w *Waiter) Discard(err error) {
	if w.t.remove(w.id, w.e) {
		w.e.end(err)
	}
}
