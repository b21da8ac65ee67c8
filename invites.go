// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"sort"
	"time"

	"golang.org/x/text/language"
	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

var (
	directName   = xml.Name{Space: NSConf, Local: "x"}
	mediatedName = xml.Name{Space: NSUser, Local: "x"}
)

// Invite is a mediated or direct invitation to a room, or a decline of one.
// When the XML is marshaled or unmarshaled the namespace determines whether the
// invitation was direct or mediated.
// The default is mediated.
//
// Invites built by the client and invites parsed from the network are the same
// type with different fields populated: outbound invites have SendTo set to
// the invitee, inbound invites have From set to the address that delivered
// them and ReceivedFrom set to the user that sent them through a room.
type Invite struct {
	XMLName xml.Name

	// ID is the ID of the message stanza that carried the invitation.
	ID string

	// To and From are the addresses of the carrying message.
	// If From is the zero value the stanza was generated by our own server.
	To   jid.JID
	From jid.JID

	// SendTo is the user the invitation is intended for.
	SendTo jid.JID
	Room   jid.JID

	Reason   string
	Password string
	Language language.Tag

	// Continue and Thread indicate that the invitation continues a one-to-one
	// chat.
	Continue bool
	Thread   string

	// Decline is set if this is the answer to an invitation instead of an
	// invitation.
	Decline bool

	receivedFrom jid.JID
}

// ReceivedFrom is the user that sent the invitation (or decline) through the
// room.
// It is only set on mediated invitations parsed from the network.
func (i Invite) ReceivedFrom() jid.JID {
	return i.receivedFrom
}

// IsEmpty reports whether the envelope carried no invitation or decline.
func (i Invite) IsEmpty() bool {
	zero := jid.JID{}
	return i.Room.Equal(zero) && i.SendTo.Equal(zero) && i.receivedFrom.Equal(zero)
}

// Direct reports whether this is a direct invitation, sent user to user.
func (i Invite) Direct() bool {
	return i.XMLName == directName
}

// MarshalDirect returns the invitation as a direct MUC invitation (sent
// directly to the invitee).
func (i Invite) MarshalDirect() xml.TokenReader {
	attr := []xml.Attr{{
		Name:  xml.Name{Local: "jid"},
		Value: i.Room.String(),
	}}
	if i.Continue {
		attr = append(attr, xml.Attr{
			Name:  xml.Name{Local: "continue"},
			Value: "true",
		})
		if i.Thread != "" {
			attr = append(attr, xml.Attr{
				Name:  xml.Name{Local: "thread"},
				Value: i.Thread,
			})
		}
	}
	if i.Password != "" {
		attr = append(attr, xml.Attr{
			Name:  xml.Name{Local: "password"},
			Value: i.Password,
		})
	}
	if i.Reason != "" {
		attr = append(attr, xml.Attr{
			Name:  xml.Name{Local: "reason"},
			Value: i.Reason,
		})
	}
	return xmlstream.Wrap(
		nil,
		xml.StartElement{Name: directName, Attr: attr},
	)
}

// MarshalMediated returns the invitation as a mediated MUC invitation (sent
// to the room and then forwarded to the invitee).
// If Decline is set a decline addressed to SendTo is returned instead.
func (i Invite) MarshalMediated() xml.TokenReader {
	var reasonEl, passEl, continueEl xml.TokenReader
	if i.Reason != "" {
		reasonEl = xmlstream.Wrap(
			xmlstream.Token(xml.CharData(i.Reason)),
			xml.StartElement{Name: xml.Name{Local: "reason"}},
		)
	}
	if i.Password != "" && !i.Decline {
		passEl = xmlstream.Wrap(
			xmlstream.Token(xml.CharData(i.Password)),
			xml.StartElement{Name: xml.Name{Local: "password"}},
		)
	}
	if i.Continue && !i.Decline {
		var attr []xml.Attr
		if i.Thread != "" {
			attr = []xml.Attr{{
				Name:  xml.Name{Local: "thread"},
				Value: i.Thread,
			}}
		}
		continueEl = xmlstream.Wrap(
			nil,
			xml.StartElement{Name: xml.Name{Local: "continue"}, Attr: attr},
		)
	}
	local := "invite"
	if i.Decline {
		local = "decline"
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(
			xmlstream.Wrap(
				xmlstream.MultiReader(
					reasonEl,
					continueEl,
				),
				xml.StartElement{
					Name: xml.Name{Local: local},
					Attr: []xml.Attr{{Name: xml.Name{Local: "to"}, Value: i.SendTo.String()}},
				},
			),
			passEl,
		),
		xml.StartElement{Name: mediatedName},
	)
}

// TokenReader satisfies the xmlstream.Marshaler interface.
//
// It calls either MarshalDirect or MarshalMediated depending on the invitations
// XMLName field.
func (i Invite) TokenReader() xml.TokenReader {
	if i.Direct() {
		return i.MarshalDirect()
	}
	return i.MarshalMediated()
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (i Invite) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, i.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (i Invite) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := i.WriteXML(e)
	return err
}

type inviteContinue struct {
	XMLName xml.Name
	Thread  string `xml:"thread,attr"`
}

type mediatedElem struct {
	To       string         `xml:"to,attr"`
	From     string         `xml:"from,attr"`
	Reason   string         `xml:"reason"`
	Continue inviteContinue `xml:"continue"`
}

// UnmarshalXML implements xml.Unmarshaler.
// Addresses that cannot be parsed are left unset.
func (i *Invite) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	if start.Name == directName {
		s := struct {
			XMLName  xml.Name `xml:"jabber:x:conference x"`
			Continue bool     `xml:"continue,attr"`
			JID      string   `xml:"jid,attr"`
			Pass     string   `xml:"password,attr"`
			Reason   string   `xml:"reason,attr"`
			Thread   string   `xml:"thread,attr"`
		}{}
		err := d.DecodeElement(&s, &start)
		if err != nil {
			return err
		}
		i.XMLName = s.XMLName
		i.Continue = s.Continue
		i.Room = parseJID(s.JID)
		i.Password = s.Pass
		i.Reason = s.Reason
		i.Thread = s.Thread
		return nil
	}

	var s userMessageX
	err := d.DecodeElement(&s, &start)
	if err != nil {
		return err
	}
	i.XMLName = s.XMLName
	i.setMediated(s)
	return nil
}

// userMessageX is the muc#user payload of a message.
type userMessageX struct {
	XMLName  xml.Name      `xml:"http://jabber.org/protocol/muc#user x"`
	Invite   *mediatedElem `xml:"invite"`
	Decline  *mediatedElem `xml:"decline"`
	Password string        `xml:"password"`
	Status   []statusCode  `xml:"status"`
}

func (i *Invite) setMediated(s userMessageX) {
	i.Password = s.Password
	el := s.Invite
	if s.Decline != nil {
		el = s.Decline
		i.Decline = true
	}
	if el == nil {
		return
	}
	i.SendTo = parseJID(el.To)
	i.receivedFrom = parseJID(el.From)
	i.Reason = el.Reason
	i.Continue = el.Continue.XMLName.Local != ""
	i.Thread = el.Continue.Thread
}

func parseJID(s string) jid.JID {
	if s == "" {
		return jid.JID{}
	}
	j, err := jid.Parse(s)
	if err != nil {
		return jid.JID{}
	}
	return j
}

type outstandingInvite struct {
	invite Invite
	timer  *time.Timer
}

func messageLang(t language.Tag) string {
	if t == language.Und {
		return ""
	}
	return t.String()
}

// SendInvite asks a room to invite a user.
//
// The invitation is relayed by the room, so the room decides whether the
// invitation is allowed.
// If password is empty and the room is managed by the client the password
// used to join it is sent.
// SendInvite returns once the request is sent; if the room answers with an
// error before the invite grace period elapses an ErrorEvent is emitted,
// otherwise the invitation is assumed to have been delivered.
func (c *Client) SendInvite(ctx context.Context, to, room jid.JID, message, password string) (Invite, error) {
	room = room.Bare()
	if password == "" {
		c.roomsM.Lock()
		if r, ok := c.rooms[roomKey(room)]; ok {
			password = r.password
		}
		c.roomsM.Unlock()
	}
	inv := Invite{
		XMLName:  mediatedName,
		ID:       c.newID(),
		To:       room,
		SendTo:   to,
		Room:     room,
		Reason:   message,
		Password: password,
	}
	c.trackInvite(inv)
	err := c.s.Send(ctx, stanza.Message{
		ID:   inv.ID,
		To:   room,
		Type: stanza.NormalMessage,
	}.Wrap(inv.MarshalMediated()))
	if err != nil {
		c.untrackInvite(inv.ID)
		return inv, err
	}
	c.logger.Debug().Str("room", room.String()).Str("to", to.String()).Str("id", inv.ID).Msg("sent invite")
	return inv, nil
}

// SendDirectInvite sends an invitation directly to a user instead of through
// the room.
// This is useful when a mediated invitation is being blocked by a user that
// does not allow contact from unrecognized JIDs.
func (c *Client) SendDirectInvite(ctx context.Context, to, room jid.JID, reason, password string) (Invite, error) {
	room = room.Bare()
	if password == "" {
		c.roomsM.Lock()
		if r, ok := c.rooms[roomKey(room)]; ok {
			password = r.password
		}
		c.roomsM.Unlock()
	}
	inv := Invite{
		XMLName:  directName,
		ID:       c.newID(),
		To:       to,
		SendTo:   to,
		Room:     room,
		Reason:   reason,
		Password: password,
	}
	c.trackInvite(inv)
	err := c.s.Send(ctx, stanza.Message{
		ID:   inv.ID,
		To:   to,
		Type: stanza.NormalMessage,
	}.Wrap(inv.MarshalDirect()))
	if err != nil {
		c.untrackInvite(inv.ID)
		return inv, err
	}
	return inv, nil
}

// DeclineInvite declines an invitation received from a room.
//
// The decline is sent through the room to the user that sent the invitation,
// or to the sender of the stanza if the invitation was not relayed.
// No event is emitted for our own decline.
func (c *Client) DeclineInvite(ctx context.Context, inv Invite, reason string) error {
	addressee := inv.receivedFrom
	if addressee.Equal(jid.JID{}) {
		addressee = inv.From
	}
	room := inv.Room
	if room.Equal(jid.JID{}) && !inv.Direct() {
		room = inv.From.Bare()
	}
	if addressee.Equal(jid.JID{}) || room.Equal(jid.JID{}) {
		return ErrInvalidInvite
	}
	decline := Invite{
		XMLName:  mediatedName,
		ID:       c.newID(),
		To:       room.Bare(),
		SendTo:   addressee,
		Room:     room.Bare(),
		Reason:   reason,
		Decline:  true,
		Language: inv.Language,
	}
	return c.s.Send(ctx, stanza.Message{
		ID:   decline.ID,
		To:   decline.To,
		Lang: messageLang(decline.Language),
		Type: stanza.NormalMessage,
	}.Wrap(decline.MarshalMediated()))
}

// PendingInvites returns the invitations sent by this client that are still
// within their grace period, ordered by ID.
func (c *Client) PendingInvites() []Invite {
	c.invitesM.Lock()
	defer c.invitesM.Unlock()
	out := make([]Invite, 0, len(c.invites))
	for _, o := range c.invites {
		out = append(out, o.invite)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *Client) trackInvite(inv Invite) {
	if c.grace <= 0 {
		return
	}
	c.invitesM.Lock()
	defer c.invitesM.Unlock()
	id := inv.ID
	timer := time.AfterFunc(c.grace, func() {
		if c.untrackInvite(id) {
			c.logger.Debug().Str("id", id).Msg("invite grace period elapsed")
		}
	})
	c.invites[id] = &outstandingInvite{invite: inv, timer: timer}
}

// untrackInvite stops tracking the invitation and reports whether it was
// still outstanding.
func (c *Client) untrackInvite(id string) bool {
	c.invitesM.Lock()
	defer c.invitesM.Unlock()
	o, ok := c.invites[id]
	if !ok {
		return false
	}
	if o.timer != nil {
		o.timer.Stop()
	}
	delete(c.invites, id)
	return true
}

// untrackDeclined stops tracking every invitation to room sent to the user
// that declined.
func (c *Client) untrackDeclined(room, by jid.JID) {
	if by.Equal(jid.JID{}) {
		return
	}
	room = room.Bare()
	by = by.Bare()
	c.invitesM.Lock()
	defer c.invitesM.Unlock()
	for id, o := range c.invites {
		if !o.invite.Room.Bare().Equal(room) || !o.invite.SendTo.Bare().Equal(by) {
			continue
		}
		if o.timer != nil {
			o.timer.Stop()
		}
		delete(c.invites, id)
	}
}
