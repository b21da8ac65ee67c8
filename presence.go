// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"encoding/xml"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/muc/internal/track"
)

type statusCode struct {
	Code int `xml:"code,attr"`
}

type actor struct {
	Nick string `xml:"nick,attr"`
	JID  string `xml:"jid,attr"`
}

type userItem struct {
	Affiliation string `xml:"affiliation,attr"`
	Role        string `xml:"role,attr"`
	JID         string `xml:"jid,attr"`
	Nick        string `xml:"nick,attr"`
	Actor       actor  `xml:"actor"`
	Reason      string `xml:"reason"`
}

type destroyElem struct {
	JID    string `xml:"jid,attr"`
	Reason string `xml:"reason"`
}

type userX struct {
	XMLName xml.Name     `xml:"http://jabber.org/protocol/muc#user x"`
	Items   []userItem   `xml:"item"`
	Status  []statusCode `xml:"status"`
	Destroy *destroyElem `xml:"destroy"`
}

func (x *userX) item() userItem {
	if x == nil || len(x.Items) == 0 {
		return userItem{}
	}
	return x.Items[0]
}

type mucPresence struct {
	stanza.Presence
	Show   string        `xml:"show"`
	Status string        `xml:"status"`
	X      *userX        `xml:"http://jabber.org/protocol/muc#user x"`
	Err    *stanza.Error `xml:"error"`
}

// occupant builds the occupant described by the presence.
// A missing role defaults to participant and a missing affiliation to none.
func (p *mucPresence) occupant(r *room) Occupant {
	item := p.X.item()
	o := Occupant{
		Room:         r.addr,
		Nick:         p.From.Resourcepart(),
		JID:          parseJID(item.JID),
		Role:         RoleParticipant,
		Availability: availabilityFromShow(p.Show, p.Type == stanza.UnavailablePresence),
		Status:       p.Status,
	}
	if item.Role != "" {
		if role, err := ParseRole(item.Role); err == nil {
			o.Role = role
		}
	}
	if item.Affiliation != "" {
		if a, err := ParseAffiliation(item.Affiliation); err == nil {
			o.Affiliation = a
		}
	}
	if o.JID.Equal(jid.JID{}) {
		if prev, ok := r.roster.get(o.Nick); ok {
			o.JID = prev.JID
		}
	}
	return o
}

func (c *Client) handlePresence(d *xml.Decoder, start *xml.StartElement) error {
	var p mucPresence
	err := d.Decode(&p)
	if err != nil {
		return malformed(err)
	}

	switch p.Type {
	case stanza.ErrorPresence:
		c.handlePresenceError(&p, start)
		return nil
	case stanza.AvailablePresence, stanza.UnavailablePresence:
	default:
		return nil
	}
	if p.X == nil {
		return nil
	}

	key := roomKey(p.From)
	logger := c.logger.With().Str("room", key).Str("from", p.From.String()).Logger()

	c.roomsM.Lock()
	r, ok := c.rooms[key]
	if !ok {
		c.roomsM.Unlock()
		logger.Debug().Msg("presence from unmanaged room")
		return nil
	}

	statuses, unknown := parseStatuses(p.X.Status)
	item := p.X.item()
	occ := p.occupant(r)
	self := statuses.Has(StatusSelf) || occ.Nick == r.nick
	ev := StatusEvent{
		Room:     r.addr,
		Occupant: occ,
		Statuses: statuses,
		Self:     self,
		Actor:    item.Actor.Nick,
		Reason:   item.Reason,
	}
	if ev.Actor == "" {
		ev.Actor = item.Actor.JID
	}
	if statuses.Has(StatusNonAnonymous) || statuses.Has(StatusNowNonAnonymous) {
		r.nonAnonymous = true
	}
	if statuses.Has(StatusNowSemiAnonymous) || statuses.Has(StatusNowFullyAnonymous) {
		r.nonAnonymous = false
	}

	var resolve string
	var evicted error
	switch {
	case p.Type == stanza.UnavailablePresence && statuses.Has(StatusNickChanged) && item.Nick != "":
		ev.NewNick = item.Nick
		r.roster.rename(occ.Nick, item.Nick)
		if self {
			r.nick = item.Nick
		}
	case p.Type == stanza.UnavailablePresence:
		r.roster.remove(occ.Nick)
		if !self {
			break
		}
		evicted = ErrRoomLeft
		if p.X.Destroy != nil {
			ev.Destroyed = true
			ev.Alternate = parseJID(p.X.Destroy.JID)
			if ev.Reason == "" {
				ev.Reason = p.X.Destroy.Reason
			}
			evicted = ErrRoomDestroyed
		}
		if r.state == Leaving {
			resolve = r.leaveID
		}
		delete(c.rooms, key)
		r.state = NotJoined
	default:
		r.roster.upsert(occ)
		if !self {
			break
		}
		r.nick = occ.Nick
		if r.state == Joining {
			r.state = Joined
			resolve = r.joinID
			r.joinID = ""
		}
	}
	c.roomsM.Unlock()

	if len(unknown) > 0 {
		logger.Debug().Ints("codes", unknown).Msg("ignoring unknown status codes")
	}
	if resolve != "" {
		c.tracker.Resolve(resolve, track.Response{Start: start.Copy()})
	}
	if evicted != nil {
		logger.Debug().Err(evicted).Msg("room session ended")
		c.tracker.Cancel(key, evicted)
	}
	c.emitStatus(ev)
	return nil
}

// handlePresenceError fails a pending join or leave, if any, and reports the
// error.
// Errors for rooms that are fully joined never change their state.
func (c *Client) handlePresenceError(p *mucPresence, start *xml.StartElement) {
	var se stanza.Error
	if p.Err != nil {
		se = *p.Err
	}
	respErr := &ResponseError{From: p.From, Err: se}
	key := roomKey(p.From)

	var resolve string
	c.roomsM.Lock()
	r, ok := c.rooms[key]
	if ok {
		switch r.state {
		case Joining:
			resolve = r.joinID
		case Leaving:
			resolve = r.leaveID
		}
		if resolve != "" {
			delete(c.rooms, key)
			r.state = NotJoined
		}
	}
	c.roomsM.Unlock()

	if resolve != "" {
		c.tracker.Resolve(resolve, track.Response{Start: start.Copy(), Err: respErr})
		c.tracker.Cancel(key, ErrRoomLeft)
	}
	c.emitError(ErrorEvent{
		Room: p.From.Bare(),
		From: p.From,
		ID:   p.ID,
		Err:  respErr,
	})
}
