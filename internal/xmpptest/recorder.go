// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpptest provides utilities for testing the MUC engine without a
// network connection.
package xmpptest // import "mellium.im/muc/internal/xmpptest"

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"
	"sync"

	"mellium.im/xmlstream"
	"mellium.im/xmpp"

	"mellium.im/muc/internal/attr"
)

// Stanza is a stanza captured by a Recorder.
type Stanza struct {
	Start xml.StartElement
	XML   string
}

// ID returns the id attribute of the stanza.
func (s Stanza) ID() string {
	return attr.Get(s.Start.Attr, "id")
}

// To returns the to attribute of the stanza.
func (s Stanza) To() string {
	return attr.Get(s.Start.Attr, "to")
}

// Type returns the type attribute of the stanza.
func (s Stanza) Type() string {
	return attr.Get(s.Start.Attr, "type")
}

// Contains reports whether the serialized stanza contains substr.
func (s Stanza) Contains(substr string) bool {
	return strings.Contains(s.XML, substr)
}

// Recorder records every stanza sent through it.
// It optionally answers each stanza by feeding replies back into Handler,
// simulating a server that responds before Send returns.
type Recorder struct {
	// Handler receives the replies produced by Reply.
	Handler xmpp.Handler

	// Reply, if set, is called with each sent stanza and returns zero or more
	// XML stanzas to deliver to Handler.
	Reply func(Stanza) []string

	// Err, if set, is returned from every call to Send and nothing is recorded.
	Err error

	mu   sync.Mutex
	sent []Stanza
}

// Send satisfies the Sender interface used by the engine.
func (r *Recorder) Send(ctx context.Context, tr xml.TokenReader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Err != nil {
		return r.Err
	}

	var buf bytes.Buffer
	e := xml.NewEncoder(&buf)
	var start xml.StartElement
	for {
		tok, err := tr.Token()
		if tok != nil {
			if s, ok := tok.(xml.StartElement); ok && start.Name.Local == "" {
				start = s.Copy()
			}
			if encErr := e.EncodeToken(tok); encErr != nil {
				return encErr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if err := e.Flush(); err != nil {
		return err
	}

	s := Stanza{Start: start, XML: buf.String()}
	r.mu.Lock()
	r.sent = append(r.sent, s)
	reply := r.Reply
	h := r.Handler
	r.mu.Unlock()

	if reply == nil || h == nil {
		return nil
	}
	for _, x := range reply(s) {
		if err := Inject(h, x); err != nil {
			return err
		}
	}
	return nil
}

// Sent returns a copy of every stanza recorded so far.
func (r *Recorder) Sent() []Stanza {
	r.mu.Lock()
	defer r.mu.Unlock()
	sent := make([]Stanza, len(r.sent))
	copy(sent, r.sent)
	return sent
}

// Last returns the most recently recorded stanza.
func (r *Recorder) Last() (Stanza, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Stanza{}, false
	}
	return r.sent[len(r.sent)-1], true
}

// Reset discards every recorded stanza.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = r.sent[:0]
}

// Inject decodes a single stanza from x and passes it to h the same way an
// xmpp.Session would.
// Anything h encodes in response is discarded.
func Inject(h xmpp.Handler, x string) error {
	d := xml.NewDecoder(strings.NewReader(x))
	var start xml.StartElement
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		if s, ok := tok.(xml.StartElement); ok {
			start = s.Copy()
			break
		}
	}
	return h.HandleXMPP(struct {
		xml.TokenReader
		*xml.Encoder
	}{
		TokenReader: xmlstream.MultiReader(xmlstream.Inner(d), xmlstream.Token(start.End())),
		Encoder:     xml.NewEncoder(io.Discard),
	}, &start)
}
