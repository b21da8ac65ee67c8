// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package bus_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"

	"mellium.im/muc/bus"
	"mellium.im/muc/internal/xmpptest"
)

// session delivers a fixed list of stanzas to the handler passed to Serve.
type session struct {
	in  []string
	out *bytes.Buffer
	err error
}

func (s *session) Send(ctx context.Context, r xml.TokenReader) error {
	if s.err != nil {
		return s.err
	}
	e := xml.NewEncoder(s.out)
	_, err := xmlstream.Copy(e, r)
	if err != nil {
		return err
	}
	return e.Flush()
}

func (s *session) Serve(h xmpp.Handler) error {
	for _, x := range s.in {
		d := xml.NewDecoder(strings.NewReader(x))
		tok, err := d.Token()
		if err != nil {
			return err
		}
		start := tok.(xml.StartElement)
		e := xml.NewEncoder(s.out)
		err = h.HandleXMPP(struct {
			xml.TokenReader
			*xml.Encoder
		}{
			TokenReader: xmlstream.MultiReader(xmlstream.Inner(d), xmlstream.Token(start.End())),
			Encoder:     e,
		}, &start)
		if err != nil {
			return err
		}
		if err := e.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func TestServeRecoversAndAnswers(t *testing.T) {
	var out, logs bytes.Buffer
	s := &session{
		in: []string{
			`<message from="a@example.net" id="1"><body>boom</body></message>`,
			`<iq from="a@example.net/r" to="b@example.net/r" type="get" id="2"><query xmlns="jabber:iq:version"/></iq>`,
			`<presence from="a@example.net" id="3"/>`,
		},
		out: &out,
	}
	b := bus.New(s, zerolog.New(&logs))

	var handled []string
	err := b.Serve(xmpp.HandlerFunc(func(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
		handled = append(handled, start.Name.Local)
		switch start.Name.Local {
		case "message":
			panic("boom")
		case "presence":
			return errors.New("bad presence")
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("serve ended with error: %v", err)
	}

	if strings.Join(handled, ",") != "message,presence" {
		t.Errorf("wrong stanzas delivered to the handler: %v", handled)
	}
	reply := out.String()
	for _, s := range []string{`id="2"`, `type="error"`, `to="a@example.net/r"`, `<service-unavailable xmlns="urn:ietf:params:xml:ns:xmpp-stanzas">`} {
		if !strings.Contains(reply, s) {
			t.Errorf("expected %s in reply %s", s, reply)
		}
	}
	if !strings.Contains(logs.String(), "recovered from panic") {
		t.Errorf("panic was not logged: %s", logs.String())
	}
	if !strings.Contains(logs.String(), "bad presence") {
		t.Errorf("handler error was not logged: %s", logs.String())
	}
}

func TestSendWrapsErrors(t *testing.T) {
	sendErr := errors.New("closed")
	b := bus.New(&session{err: sendErr}, zerolog.Nop())
	err := b.Send(context.Background(), xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Local: "presence"}}))
	if !errors.Is(err, sendErr) {
		t.Errorf("wrong error: want=%v, got=%v", sendErr, err)
	}
}

type recorderSession struct {
	*xmpptest.Recorder
}

func (recorderSession) Serve(xmpp.Handler) error {
	return nil
}

func TestBusCarriesResponses(t *testing.T) {
	rec := &xmpptest.Recorder{}
	b := bus.New(recorderSession{rec}, zerolog.Nop())
	var got int
	rec.Handler = b.Handler(xmpp.HandlerFunc(func(xmlstream.TokenReadEncoder, *xml.StartElement) error {
		got++
		return nil
	}))
	rec.Reply = func(s xmpptest.Stanza) []string {
		return []string{`<iq type="result" id="` + s.ID() + `"/>`}
	}
	err := b.Send(context.Background(), xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Local: "iq"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: "1"}, {Name: xml.Name{Local: "type"}, Value: "get"}},
	}))
	if err != nil {
		t.Fatalf("error sending: %v", err)
	}
	if got != 1 {
		t.Errorf("result was not delivered to the handler")
	}
}
