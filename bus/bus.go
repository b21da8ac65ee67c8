// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package bus adapts an XMPP session for use by the MUC client.
//
// The bus delivers every inbound stanza to a single handler in arrival order,
// answers requests that the handler does not serve, and keeps a misbehaving
// handler from tearing down the session.
package bus // import "mellium.im/muc/bus"

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/rs/zerolog"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/muc/internal/attr"
)

// Session is the part of an *xmpp.Session used by the bus.
type Session interface {
	Send(ctx context.Context, r xml.TokenReader) error
	Serve(h xmpp.Handler) error
}

// Bus carries stanzas between a session and a handler.
type Bus struct {
	session Session
	logger  zerolog.Logger
}

// New returns a bus over the session.
func New(s Session, logger zerolog.Logger) *Bus {
	return &Bus{
		session: s,
		logger:  logger.With().Str("module", "bus").Logger(),
	}
}

// Send transmits a stanza.
func (b *Bus) Send(ctx context.Context, r xml.TokenReader) error {
	err := b.session.Send(ctx, r)
	if err != nil {
		return fmt.Errorf("bus: send: %w", err)
	}
	return nil
}

// Serve delivers inbound stanzas to h until the session ends.
func (b *Bus) Serve(h xmpp.Handler) error {
	return b.session.Serve(b.Handler(h))
}

// Handler wraps h so that a panic or an error while handling one stanza is
// logged and does not end the session, and so that IQ requests are always
// answered.
func (b *Bus) Handler(h xmpp.Handler) xmpp.Handler {
	return xmpp.HandlerFunc(func(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
		b.dispatch(h, t, start)
		return nil
	})
}

func (b *Bus) dispatch(h xmpp.Handler, t xmlstream.TokenReadEncoder, start *xml.StartElement) {
	logger := b.logger.With().
		Str("stanza", start.Name.Local).
		Str("id", attr.Get(start.Attr, "id")).
		Str("from", attr.Get(start.Attr, "from")).
		Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic while handling stanza")
		}
	}()

	logger.Trace().Msg("received stanza")
	if start.Name.Local == "iq" {
		switch stanza.IQType(attr.Get(start.Attr, "type")) {
		case stanza.GetIQ, stanza.SetIQ:
			err := b.unavailable(t, start)
			if err != nil {
				logger.Warn().Err(err).Msg("error answering request")
			}
			return
		}
	}

	err := h.HandleXMPP(t, start)
	if err != nil {
		logger.Warn().Err(err).Msg("error handling stanza")
	}
}

// unavailable answers an IQ request with a service-unavailable error.
func (b *Bus) unavailable(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	to, _ := jid.Parse(attr.Get(start.Attr, "from"))
	from, _ := jid.Parse(attr.Get(start.Attr, "to"))
	_, err := xmlstream.Copy(t, stanza.IQ{
		ID:   attr.Get(start.Attr, "id"),
		To:   to,
		From: from,
		Type: stanza.ErrorIQ,
	}.Wrap(stanza.Error{
		Type:      stanza.Cancel,
		Condition: stanza.ServiceUnavailable,
	}.TokenReader()))
	return err
}
