// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"encoding/xml"

	"golang.org/x/text/language"
	"mellium.im/xmpp/delay"
	"mellium.im/xmpp/stanza"
)

type mucMessage struct {
	stanza.Message
	Subject *string       `xml:"subject"`
	Body    string        `xml:"body"`
	X       *userMessageX `xml:"http://jabber.org/protocol/muc#user x"`
	Direct  *Invite       `xml:"jabber:x:conference x"`
	Delay   *delay.Delay  `xml:"urn:xmpp:delay delay"`
	Err     *stanza.Error `xml:"error"`
}

func (m *mucMessage) language() language.Tag {
	if m.Lang == "" {
		return language.Und
	}
	tag, err := language.Parse(m.Lang)
	if err != nil {
		return language.Und
	}
	return tag
}

func (c *Client) handleMessage(d *xml.Decoder, _ *xml.StartElement) error {
	var m mucMessage
	err := d.Decode(&m)
	if err != nil {
		return malformed(err)
	}

	if m.Type == stanza.ErrorMessage {
		c.handleMessageError(&m)
		return nil
	}

	switch {
	case m.Direct != nil:
		inv := *m.Direct
		inv.ID = m.ID
		inv.To = m.To
		inv.From = m.From
		inv.SendTo = m.To
		inv.Language = m.language()
		c.logger.Debug().Str("room", inv.Room.String()).Str("from", m.From.String()).Msg("received direct invite")
		c.emitInvite(inv)
		return nil
	case m.X != nil && (m.X.Invite != nil || m.X.Decline != nil):
		inv := Invite{
			XMLName:  mediatedName,
			ID:       m.ID,
			To:       m.To,
			From:     m.From,
			Room:     m.From.Bare(),
			Language: m.language(),
		}
		inv.setMediated(*m.X)
		if inv.Decline {
			c.untrackDeclined(inv.Room, inv.ReceivedFrom())
			c.emitDecline(inv)
			return nil
		}
		c.emitInvite(inv)
		return nil
	}

	key := roomKey(m.From)
	c.roomsM.Lock()
	r, ok := c.rooms[key]
	if !ok {
		c.roomsM.Unlock()
		c.logger.Debug().Str("room", key).Msg("message from unmanaged room")
		return nil
	}

	var statusEv *StatusEvent
	if m.X != nil && len(m.X.Status) > 0 {
		statuses, _ := parseStatuses(m.X.Status)
		switch {
		case statuses.Has(StatusNowNonAnonymous):
			r.nonAnonymous = true
		case statuses.Has(StatusNowSemiAnonymous), statuses.Has(StatusNowFullyAnonymous):
			r.nonAnonymous = false
		}
		if len(statuses) > 0 {
			statusEv = &StatusEvent{Room: r.addr, Statuses: statuses}
		}
	}

	var subjectEv *SubjectEvent
	if m.Type == stanza.GroupChatMessage && m.Subject != nil && m.Body == "" {
		r.subject = *m.Subject
		subjectEv = &SubjectEvent{
			Room:    r.addr,
			Nick:    m.From.Resourcepart(),
			Subject: *m.Subject,
			Delayed: m.Delay != nil,
		}
	}
	addr := r.addr
	c.roomsM.Unlock()

	if statusEv != nil {
		c.emitStatus(*statusEv)
	}
	if subjectEv != nil {
		c.emitSubject(*subjectEv)
	}
	if m.Type == stanza.GroupChatMessage && m.Body != "" {
		msg := Message{
			Room: addr,
			Nick: m.From.Resourcepart(),
			ID:   m.ID,
			Body: m.Body,
		}
		if m.Delay != nil {
			msg.Delayed = true
			msg.Stamp = m.Delay.Time
		}
		c.emitMessage(msg)
	}
	return nil
}

// handleMessageError reports errors returned by rooms in response to messages
// such as invitations or subject changes.
// They never change the state of a room.
func (c *Client) handleMessageError(m *mucMessage) {
	var se stanza.Error
	if m.Err != nil {
		se = *m.Err
	}
	if m.ID != "" && c.untrackInvite(m.ID) {
		c.logger.Debug().Str("id", m.ID).Msg("invite rejected")
	}
	c.emitError(ErrorEvent{
		Room: m.From.Bare(),
		From: m.From,
		ID:   m.ID,
		Err:  &ResponseError{From: m.From, Err: se},
	})
}
