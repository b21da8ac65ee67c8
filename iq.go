// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"

	"mellium.im/xmpp/stanza"

	"mellium.im/muc/internal/attr"
	"mellium.im/muc/internal/track"
)

// handleIQ resolves the request that an IQ result or error answers.
// Errors that do not answer an outstanding request are reported as events.
func (c *Client) handleIQ(t xml.TokenReader, start *xml.StartElement) error {
	typ := stanza.IQType(attr.Get(start.Attr, "type"))
	if typ != stanza.ResultIQ && typ != stanza.ErrorIQ {
		return nil
	}
	id := attr.Get(start.Attr, "id")
	resp, err := track.Capture(*start, t)
	if err != nil {
		return malformed(err)
	}
	var respErr *ResponseError
	if typ == stanza.ErrorIQ {
		respErr = iqError(resp)
		resp.Err = respErr
	}
	if c.tracker.Resolve(id, resp) {
		return nil
	}
	if respErr != nil {
		c.emitError(ErrorEvent{
			Room: respErr.From.Bare(),
			From: respErr.From,
			ID:   id,
			Err:  respErr,
		})
		return nil
	}
	c.logger.Debug().Str("id", id).Msg("dropping unsolicited result")
	return nil
}

func iqError(resp track.Response) *ResponseError {
	s := struct {
		stanza.IQ
		Err stanza.Error `xml:"error"`
	}{}
	d := xml.NewTokenDecoder(resp.Reader())
	// A malformed error payload still fails the request, just without a
	// condition.
	_ = d.Decode(&s)
	return &ResponseError{
		From: parseJID(attr.Get(resp.Start.Attr, "from")),
		Err:  s.Err,
	}
}

// request sends an IQ and blocks until it is answered.
// If the IQ has no ID one is generated.
func (c *Client) request(ctx context.Context, scope, op string, iq stanza.IQ, payload xml.TokenReader) (track.Response, error) {
	if iq.ID == "" {
		iq.ID = c.newID()
	}
	w := c.tracker.Register(ctx, iq.ID, scope, op)
	err := c.s.Send(ctx, iq.Wrap(payload))
	if err != nil {
		w.Discard(err)
		return track.Response{}, err
	}
	return w.Wait(ctx, c.timeout)
}

// requestFunc is like request except that it returns after sending and the
// response is delivered to f.
func (c *Client) requestFunc(ctx context.Context, scope, op string, iq stanza.IQ, payload xml.TokenReader, f func(track.Response)) error {
	if iq.ID == "" {
		iq.ID = c.newID()
	}
	c.tracker.Callback(ctx, iq.ID, scope, op, c.timeout, f)
	err := c.s.Send(ctx, iq.Wrap(payload))
	if err != nil {
		c.tracker.Drop(iq.ID, err)
		return err
	}
	return nil
}
