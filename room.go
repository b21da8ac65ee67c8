// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"errors"
	"sort"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

func sortRooms(rooms []Room) {
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Addr.String() < rooms[j].Addr.String()
	})
}

// JoinRoom joins a room using the provided nickname.
// If nick is empty the resourcepart of addr is used.
//
// JoinRoom blocks until the room sends our own presence back, indicating that
// the full roster has been received, the room answers with an error, or the
// client's timeout elapses.
// On failure the room is forgotten.
// The answer is delivered by the goroutine handling inbound stanzas, so
// JoinRoom must not be called from a listener or it will wait until the
// timeout and fail with ErrTimeout.
func (c *Client) JoinRoom(ctx context.Context, addr jid.JID, nick string, opt ...JoinOption) error {
	if nick == "" {
		nick = addr.Resourcepart()
	}
	if nick == "" {
		return ErrNoNickname
	}
	bare := addr.Bare()
	to, err := bare.WithResource(nick)
	if err != nil {
		return err
	}

	conf := joinConfig{}
	for _, o := range opt {
		o(&conf)
	}

	key := roomKey(bare)
	id := c.newID()
	r := &room{
		addr:     bare,
		nick:     nick,
		password: conf.password,
		state:    Joining,
		roster:   newRoster(),
		joinID:   id,
	}
	c.roomsM.Lock()
	if _, ok := c.rooms[key]; ok {
		c.roomsM.Unlock()
		return ErrAlreadyJoined
	}
	c.rooms[key] = r
	c.roomsM.Unlock()

	logger := c.logger.With().Str("room", key).Str("nick", nick).Str("id", id).Logger()
	logger.Debug().Msg("joining room")

	w := c.tracker.Register(ctx, id, key, "muc.join")
	err = c.s.Send(ctx, stanza.Presence{
		ID: id,
		To: to,
	}.Wrap(conf.TokenReader()))
	if err != nil {
		w.Discard(err)
		c.evict(r, ErrRoomLeft)
		return err
	}

	_, err = w.Wait(ctx, c.timeout)
	if err != nil {
		logger.Debug().Err(err).Msg("join failed")
		c.evict(r, ErrRoomLeft)
		return err
	}
	logger.Debug().Msg("joined room")
	return nil
}

// LeaveRoom exits a room.
// If nick is empty the nickname currently used in the room is used.
//
// LeaveRoom blocks until the room confirms that we have left, or the client's
// timeout elapses.
// Either way the room is forgotten once LeaveRoom returns.
// Like JoinRoom it must not be called from a listener.
func (c *Client) LeaveRoom(ctx context.Context, addr jid.JID, nick string) error {
	key := roomKey(addr)
	id := c.newID()

	c.roomsM.Lock()
	r, ok := c.rooms[key]
	if !ok || r.state != Joined {
		c.roomsM.Unlock()
		return ErrNotJoined
	}
	if nick == "" {
		nick = r.nick
	}
	r.state = Leaving
	r.leaveID = id
	bare := r.addr
	c.roomsM.Unlock()

	to, err := bare.WithResource(nick)
	if err != nil {
		c.restoreJoined(r)
		return err
	}

	c.logger.Debug().Str("room", key).Str("id", id).Msg("leaving room")
	w := c.tracker.Register(ctx, id, key, "muc.leave")
	err = c.s.Send(ctx, stanza.Presence{
		ID:   id,
		To:   to,
		Type: stanza.UnavailablePresence,
	}.Wrap(nil))
	if err != nil {
		w.Discard(err)
		c.restoreJoined(r)
		return err
	}

	_, err = w.Wait(ctx, c.timeout)
	c.evict(r, ErrRoomLeft)
	switch {
	case errors.Is(err, ErrRoomLeft), errors.Is(err, ErrRoomDestroyed):
		// The room went away by other means while we were leaving.
		return nil
	}
	return err
}

// restoreJoined undoes a leave that could not be sent.
func (c *Client) restoreJoined(r *room) {
	c.roomsM.Lock()
	defer c.roomsM.Unlock()
	if r.state == Leaving {
		r.state = Joined
		r.leaveID = ""
	}
}

// SetStatusInRoom changes our availability in a joined room.
// If roomWithNick has no resourcepart our current nickname is used.
// To become unavailable use LeaveRoom.
func (c *Client) SetStatusInRoom(ctx context.Context, roomWithNick jid.JID, a Availability, status string) error {
	if a == Unavailable {
		return ErrInvalidAvailability
	}
	r, err := c.joinedRoom(roomWithNick)
	if err != nil {
		return err
	}
	to := roomWithNick
	if to.Resourcepart() == "" {
		to, err = r.addr.WithResource(r.nick)
		if err != nil {
			return err
		}
	}
	return c.s.Send(ctx, stanza.Presence{
		ID: c.newID(),
		To: to,
	}.Wrap(xmlstream.MultiReader(
		optionalString(a.show(), xml.Name{Local: "show"}),
		optionalString(status, xml.Name{Local: "status"}),
	)))
}

// SetNickName asks a joined room to change our nickname.
// The change takes effect when the room confirms it, at which point an event
// with StatusNickChanged is emitted for our old nickname.
func (c *Client) SetNickName(ctx context.Context, addr jid.JID, nick string) error {
	if nick == "" {
		return ErrNoNickname
	}
	r, err := c.joinedRoom(addr)
	if err != nil {
		return err
	}
	to, err := r.addr.WithResource(nick)
	if err != nil {
		return err
	}
	c.logger.Debug().Str("room", r.addr.String()).Str("nick", nick).Msg("changing nickname")
	return c.s.Send(ctx, stanza.Presence{
		ID: c.newID(),
		To: to,
	}.Wrap(nil))
}

// EditRoomSubject attempts to change the room subject.
// It returns immediately after the request has been sent and does not wait to
// see if the request was successful or not; success is reported to
// OnSubjectChanged handlers when the room echoes the new subject.
func (c *Client) EditRoomSubject(ctx context.Context, addr jid.JID, subject string) error {
	r, err := c.joinedRoom(addr)
	if err != nil {
		return err
	}
	return c.s.Send(ctx, stanza.Message{
		ID:   c.newID(),
		To:   r.addr,
		Type: stanza.GroupChatMessage,
	}.Wrap(xmlstream.Wrap(
		xmlstream.Token(xml.CharData(subject)),
		xml.StartElement{Name: xml.Name{Local: "subject"}},
	)))
}

// SendMessage sends a message to every occupant of a joined room.
func (c *Client) SendMessage(ctx context.Context, addr jid.JID, body string) error {
	r, err := c.joinedRoom(addr)
	if err != nil {
		return err
	}
	return c.s.Send(ctx, stanza.Message{
		ID:   c.newID(),
		To:   r.addr,
		Type: stanza.GroupChatMessage,
	}.Wrap(xmlstream.Wrap(
		xmlstream.Token(xml.CharData(body)),
		xml.StartElement{Name: xml.Name{Local: "body"}},
	)))
}
