// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest_test

import (
	"context"
	"encoding/xml"
	"errors"
	"testing"

	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/muc/internal/xmpptest"
)

func TestRecorderReplies(t *testing.T) {
	var got []string
	rec := &xmpptest.Recorder{
		Handler: xmpp.HandlerFunc(func(r xmlstream.TokenReadEncoder, start *xml.StartElement) error {
			var body string
			for {
				tok, err := r.Token()
				if err != nil {
					break
				}
				if cd, ok := tok.(xml.CharData); ok {
					body += string(cd)
				}
			}
			got = append(got, start.Name.Local+":"+body)
			return nil
		}),
		Reply: func(s xmpptest.Stanza) []string {
			return []string{`<message id="` + s.ID() + `"><body>pong</body></message>`}
		},
	}

	err := rec.Send(context.Background(), stanza.Message{
		ID:   "123",
		To:   jid.MustParse("me@example.net"),
		Type: stanza.ChatMessage,
	}.Wrap(xmlstream.Wrap(
		xmlstream.Token(xml.CharData("ping")),
		xml.StartElement{Name: xml.Name{Local: "body"}},
	)))
	if err != nil {
		t.Fatalf("error sending: %v", err)
	}

	sent, ok := rec.Last()
	if !ok {
		t.Fatalf("nothing recorded")
	}
	if sent.ID() != "123" || sent.To() != "me@example.net" || sent.Type() != "chat" {
		t.Errorf("wrong attributes recorded: %+v", sent.Start.Attr)
	}
	if !sent.Contains("<body>ping</body>") {
		t.Errorf("wrong payload recorded: %s", sent.XML)
	}
	if len(got) != 1 || got[0] != "message:pong" {
		t.Errorf("unexpected replies: %v", got)
	}

	rec.Reset()
	if n := len(rec.Sent()); n != 0 {
		t.Errorf("reset left %d stanzas", n)
	}
}

func TestRecorderError(t *testing.T) {
	sendErr := errors.New("closed")
	rec := &xmpptest.Recorder{Err: sendErr}
	err := rec.Send(context.Background(), stanza.Message{}.Wrap(nil))
	if !errors.Is(err, sendErr) {
		t.Errorf("wrong error: want=%v, got=%v", sendErr, err)
	}
	if _, ok := rec.Last(); ok {
		t.Errorf("failed send was recorded")
	}
}
