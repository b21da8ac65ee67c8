// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"math"
	"strconv"
	"time"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// History limits the discussion history sent by a room when it is joined.
// Every field is optional and they may be combined, in which case the service
// applies the most restrictive limit.
type History struct {
	MaxStanzas *uint64
	MaxChars   *uint64
	Seconds    *uint64
	Since      *time.Time
}

// IsZero reports whether no limit is set.
func (h History) IsZero() bool {
	return h.MaxStanzas == nil && h.MaxChars == nil && h.Seconds == nil && h.Since == nil
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (h History) TokenReader() xml.TokenReader {
	if h.IsZero() {
		return nil
	}

	attrs := make([]xml.Attr, 0, 4)
	if h.MaxStanzas != nil {
		attrs = append(attrs, xml.Attr{
			Name:  xml.Name{Local: "maxstanzas"},
			Value: strconv.FormatUint(*h.MaxStanzas, 10),
		})
	}
	if h.MaxChars != nil {
		attrs = append(attrs, xml.Attr{
			Name:  xml.Name{Local: "maxchars"},
			Value: strconv.FormatUint(*h.MaxChars, 10),
		})
	}
	if h.Seconds != nil {
		attrs = append(attrs, xml.Attr{
			Name:  xml.Name{Local: "seconds"},
			Value: strconv.FormatUint(*h.Seconds, 10),
		})
	}
	if h.Since != nil {
		attrs = append(attrs, xml.Attr{
			Name:  xml.Name{Local: "since"},
			Value: h.Since.UTC().Format(time.RFC3339Nano),
		})
	}

	return xmlstream.Wrap(
		nil,
		xml.StartElement{Name: xml.Name{Local: "history"}, Attr: attrs},
	)
}

func (h *History) unmarshalAttrs(attrs []xml.Attr) error {
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "maxchars":
			v, err := strconv.ParseUint(attr.Value, 10, 64)
			if err != nil {
				return err
			}
			h.MaxChars = &v
		case "maxstanzas":
			v, err := strconv.ParseUint(attr.Value, 10, 64)
			if err != nil {
				return err
			}
			h.MaxStanzas = &v
		case "seconds":
			v, err := strconv.ParseUint(attr.Value, 10, 64)
			if err != nil {
				return err
			}
			h.Seconds = &v
		case "since":
			t, err := time.Parse(time.RFC3339Nano, attr.Value)
			if err != nil {
				return err
			}
			h.Since = &t
		}
	}
	return nil
}

// MaxHistory configures the maximum number of messages that will be sent to the
// client when joining the room.
func MaxHistory(messages uint64) JoinOption {
	return func(c *joinConfig) {
		c.history.MaxStanzas = &messages
	}
}

// MaxBytes configures the maximum number of bytes of XML that will be sent to
// the client when joining the room.
func MaxBytes(b uint64) JoinOption {
	return func(c *joinConfig) {
		c.history.MaxChars = &b
	}
}

// Duration configures the room to send history received within a window of
// time.
func Duration(d time.Duration) JoinOption {
	return func(c *joinConfig) {
		s := uint64(math.Abs(math.Round(d.Seconds())))
		c.history.Seconds = &s
	}
}

// Since configures the room to send history received since the provided time.
func Since(t time.Time) JoinOption {
	return func(c *joinConfig) {
		t = t.UTC()
		c.history.Since = &t
	}
}

// WithHistory replaces any history limits with h.
func WithHistory(h History) JoinOption {
	return func(c *joinConfig) {
		c.history = h
	}
}

// GetMessageLog asks a joined room to replay its discussion history.
//
// The request is a presence to the occupant's own room address carrying the
// history limits.
// Replayed messages are delivered to OnMessage handlers with Delayed set.
// GetMessageLog returns once the request is sent.
func (c *Client) GetMessageLog(ctx context.Context, room jid.JID, h History) error {
	r, err := c.joinedRoom(room)
	if err != nil {
		return err
	}
	to, err := r.addr.WithResource(r.nick)
	if err != nil {
		return err
	}
	conf := joinConfig{history: h, password: r.password}
	c.logger.Debug().Str("room", r.addr.String()).Msg("requesting history")
	return c.s.Send(ctx, stanza.Presence{
		ID: c.newID(),
		To: to,
	}.Wrap(conf.TokenReader()))
}
