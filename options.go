// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"encoding/xml"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"mellium.im/xmlstream"
)

// Defaults used by New when no option overrides them.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultInviteGrace = 30 * time.Second
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client.
// By default nothing is logged.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l.With().Str("module", "muc").Logger()
	}
}

// WithTimeout sets how long requests wait for a response before failing with
// ErrTimeout.
// A timeout of zero means requests are bounded only by their context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithInviteGrace sets how long a sent invitation is tracked while waiting for
// an error from the room.
// If no error arrives within the grace period the invitation is considered
// delivered.
func WithInviteGrace(d time.Duration) Option {
	return func(c *Client) {
		c.grace = d
	}
}

// WithTracerProvider sets the provider used to trace requests.
// By default the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// WithIDGenerator sets the function used to generate stanza IDs.
// Every generated ID must be unique among outstanding requests.
func WithIDGenerator(f func() string) Option {
	return func(c *Client) {
		c.newID = f
	}
}

type joinConfig struct {
	history  History
	password string
}

func optionalString(s string, name xml.Name) xml.TokenReader {
	if s == "" {
		return nil
	}

	return xmlstream.Wrap(
		xmlstream.Token(xml.CharData(s)),
		xml.StartElement{Name: name},
	)
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (c joinConfig) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.MultiReader(
			c.history.TokenReader(),
			optionalString(c.password, xml.Name{Local: "password"}),
		),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "x"}},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (c joinConfig) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, c.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (c joinConfig) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := c.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (c *joinConfig) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s := struct {
		History *struct {
			Attr []xml.Attr `xml:",any,attr"`
		} `xml:"history"`
		Password string `xml:"password"`
	}{}
	err := d.DecodeElement(&s, &start)
	if err != nil {
		return err
	}
	if s.History != nil {
		err = c.history.unmarshalAttrs(s.History.Attr)
		if err != nil {
			return err
		}
	}
	c.password = s.Password
	return nil
}

// JoinOption is used to configure joining a room.
type JoinOption func(*joinConfig)

// Password is used to join password protected rooms.
func Password(p string) JoinOption {
	return func(c *joinConfig) {
		c.password = p
	}
}
