// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"errors"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/form"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/muc/internal/attr"
	"mellium.im/muc/internal/track"
)

var errNoForm = errors.New("no data form in response")

func reasonElement(reason string) xml.TokenReader {
	return optionalString(reason, xml.Name{Local: "reason"})
}

// SetPrivilege grants a role or an affiliation to the occupant of a room.
//
// If the room is joined and nick is not in its roster ErrItemNotFound is
// returned without contacting the room.
// Affiliations belong to a user's real JID so when the occupant's real JID is
// known it is used instead of the nickname.
// SetPrivilege blocks until the room answers; failures are returned as a
// *ResponseError that matches ErrNotAllowed, ErrItemNotFound, ErrConflict, and
// the like.
func (c *Client) SetPrivilege(ctx context.Context, room jid.JID, nick string, g Grant, reason string) error {
	key := roomKey(room)
	attrs := []xml.Attr{g.grantAttr()}

	c.roomsM.Lock()
	r, managed := c.rooms[key]
	var occ Occupant
	var found bool
	if managed {
		occ, found = r.roster.get(nick)
		managed = r.state == Joined
	}
	c.roomsM.Unlock()
	if managed && !found {
		return ErrItemNotFound
	}

	_, isAffiliation := g.(Affiliation)
	if isAffiliation && found && !occ.JID.Equal(jid.JID{}) {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "jid"}, Value: occ.JID.Bare().String()})
	} else {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "nick"}, Value: nick})
	}

	payload := xmlstream.Wrap(
		xmlstream.Wrap(
			reasonElement(reason),
			xml.StartElement{
				Name: xml.Name{Local: "item"},
				Attr: attrs,
			},
		),
		xml.StartElement{Name: xml.Name{Space: NSAdmin, Local: "query"}},
	)
	c.logger.Debug().Str("room", key).Str("nick", nick).Str("grant", g.String()).Msg("setting privilege")
	_, err := c.request(ctx, key, "muc.admin", stanza.IQ{
		Type: stanza.SetIQ,
		To:   room.Bare(),
	}, payload)
	return err
}

// KickOccupant removes an occupant from a room by setting their role to none.
func (c *Client) KickOccupant(ctx context.Context, room jid.JID, nick, reason string) error {
	return c.SetPrivilege(ctx, room, nick, RoleNone, reason)
}

// BanUser bans an occupant from a room by setting their affiliation to
// outcast.
func (c *Client) BanUser(ctx context.Context, room jid.JID, nick, reason string) error {
	return c.SetPrivilege(ctx, room, nick, AffiliationOutcast, reason)
}

// DestroyRoom asks the room to destroy itself.
//
// If the room is destroyed it is forgotten immediately regardless of the state
// of our session in it, and any requests waiting on the room fail with
// ErrRoomDestroyed.
func (c *Client) DestroyRoom(ctx context.Context, room jid.JID, reason string) error {
	bare := room.Bare()
	key := roomKey(bare)
	payload := xmlstream.Wrap(
		xmlstream.Wrap(
			reasonElement(reason),
			xml.StartElement{Name: xml.Name{Local: "destroy"}},
		),
		xml.StartElement{Name: xml.Name{Space: NSOwner, Local: "query"}},
	)
	// Destruction is not scoped to the room so that the room going away does
	// not fail the request that caused it.
	_, err := c.request(ctx, "", "muc.destroy", stanza.IQ{
		Type: stanza.SetIQ,
		To:   bare,
	}, payload)
	if err != nil {
		return err
	}

	c.roomsM.Lock()
	r, ok := c.rooms[key]
	if ok {
		delete(c.rooms, key)
		r.state = NotJoined
	}
	c.roomsM.Unlock()
	c.tracker.Cancel(key, ErrRoomDestroyed)
	c.logger.Debug().Str("room", key).Msg("destroyed room")
	return nil
}

// RequestPrivilege asks the moderators of a joined room to grant us a role,
// normally participant (voice).
// It returns once the request is sent; if the request is granted our new role
// is reported to OnMucStatus handlers.
func (c *Client) RequestPrivilege(ctx context.Context, room jid.JID, role Role) error {
	r, err := c.joinedRoom(room)
	if err != nil {
		return err
	}
	field := func(v, typ, label, value string) xml.TokenReader {
		attrs := []xml.Attr{{Name: xml.Name{Local: "var"}, Value: v}}
		if typ != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "type"}, Value: typ})
		}
		if label != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "label"}, Value: label})
		}
		return xmlstream.Wrap(
			optionalString(value, xml.Name{Local: "value"}),
			xml.StartElement{Name: xml.Name{Local: "field"}, Attr: attrs},
		)
	}
	payload := xmlstream.Wrap(
		xmlstream.MultiReader(
			field("FORM_TYPE", "hidden", "", NSRequest),
			field("muc#role", "list-single", "Requested role", role.String()),
		),
		xml.StartElement{
			Name: xml.Name{Space: nsData, Local: "x"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: "submit"}},
		},
	)
	return c.s.Send(ctx, stanza.Message{
		ID:   c.newID(),
		To:   r.addr,
		Type: stanza.NormalMessage,
	}.Wrap(payload))
}

// RequestRegistration asks a room for its registration form and passes it to
// f once it arrives.
//
// RequestRegistration returns once the request is sent.
// f is called at most once: with the form, with the error returned by the
// room, or with ErrTimeout.
// If the room refuses the request an ErrorEvent is also emitted.
// f may be nil if only the events are of interest.
// The form is filled in and sent back with SubmitRegistration, after which
// the membership granted by the room is observed as a presence update.
func (c *Client) RequestRegistration(ctx context.Context, room jid.JID, f func(*form.Data, error)) error {
	bare := room.Bare()
	key := roomKey(bare)
	if f == nil {
		f = func(*form.Data, error) {}
	}
	return c.requestFunc(ctx, key, "muc.register", stanza.IQ{
		Type: stanza.GetIQ,
		To:   bare,
	}, xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: NSRegister, Local: "query"}}),
		func(resp track.Response) {
			switch err := resp.Err.(type) {
			case nil:
			case *ResponseError:
				c.emitError(ErrorEvent{
					Room: bare,
					From: err.From,
					ID:   attr.Get(resp.Start.Attr, "id"),
					Err:  err,
				})
				f(nil, err)
				return
			default:
				c.logger.Warn().Str("room", key).Err(err).Msg("registration request failed")
				f(nil, err)
				return
			}
			formResp := struct {
				Query struct {
					DataForm *form.Data `xml:"jabber:x:data x"`
				} `xml:"jabber:iq:register query"`
			}{}
			err := xml.NewTokenDecoder(resp.Reader()).Decode(&formResp)
			if err == nil && formResp.Query.DataForm == nil {
				err = errNoForm
			}
			if err != nil {
				f(nil, malformed(err))
				return
			}
			c.logger.Debug().Str("room", key).Msg("received registration form")
			f(formResp.Query.DataForm, nil)
		})
}

// SubmitRegistration submits a registration form previously received through
// RequestRegistration with the desired values set.
// It blocks until the room accepts or rejects the registration.
func (c *Client) SubmitRegistration(ctx context.Context, room jid.JID, data *form.Data) error {
	bare := room.Bare()
	submission, _ := data.Submit()
	_, err := c.request(ctx, roomKey(bare), "muc.register.submit", stanza.IQ{
		Type: stanza.SetIQ,
		To:   bare,
	}, xmlstream.Wrap(
		submission,
		xml.StartElement{Name: xml.Name{Space: NSRegister, Local: "query"}},
	))
	return err
}

