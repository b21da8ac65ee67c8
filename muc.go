// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"

	"mellium.im/muc/internal/attr"
	"mellium.im/muc/internal/track"
)

// Various namespaces used by this package, provided as a convenience.
const (
	NS      = `http://jabber.org/protocol/muc`
	NSUser  = `http://jabber.org/protocol/muc#user`
	NSOwner = `http://jabber.org/protocol/muc#owner`
	NSAdmin = `http://jabber.org/protocol/muc#admin`

	// NSConf is the legacy conference namespace, now only used for direct MUC
	// invitations and backwards compatibility.
	NSConf = `jabber:x:conference`

	NSRequest  = `http://jabber.org/protocol/muc#request`
	NSRoomInfo = `http://jabber.org/protocol/muc#roominfo`
	NSRegister = `jabber:iq:register`
)

const tracerName = "mellium.im/muc"

// Sender transmits stanzas.
// It is normally an *xmpp.Session.
type Sender interface {
	Send(ctx context.Context, r xml.TokenReader) error
}

// Client is an xmpp.Handler that handles MUC payloads from a client
// perspective and keeps track of the rooms it joins.
type Client struct {
	s       Sender
	logger  zerolog.Logger
	timeout time.Duration
	grace   time.Duration
	tracer  trace.Tracer
	tracker *track.Tracker
	newID   func() string

	roomsM sync.Mutex
	rooms  map[string]*room

	invitesM sync.Mutex
	invites  map[string]*outstandingInvite

	listenersM sync.RWMutex
	onInvite   []func(Invite)
	onDecline  []func(Invite)
	onError    []func(ErrorEvent)
	onStatus   []func(StatusEvent)
	onSubject  []func(SubjectEvent)
	onMessage  []func(Message)
}

// New creates a client that sends stanzas using s.
// The client must also be registered to receive stanzas from the same session,
// for example by passing it to Serve.
func New(s Sender, opt ...Option) *Client {
	c := &Client{
		s:       s,
		logger:  zerolog.Nop(),
		timeout: DefaultTimeout,
		grace:   DefaultInviteGrace,
		tracer:  otel.GetTracerProvider().Tracer(tracerName),
		newID:   attr.RandomID,
		rooms:   make(map[string]*room),
		invites: make(map[string]*outstandingInvite),
	}
	for _, o := range opt {
		o(c)
	}
	c.tracker = track.New(c.tracer)
	return c
}

// HandleXMPP satisfies xmpp.Handler.
// It is the single path through which inbound stanzas change the state of the
// client and is normally called by a session and not by the user.
//
// Stanzas that cannot be parsed are logged and dropped.
// If a bad stanza comes from a managed room an ErrorEvent is also emitted.
// HandleXMPP never returns an error for a bad stanza so that one bad stanza
// does not end the session.
func (c *Client) HandleXMPP(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	var err error
	switch start.Name.Local {
	case "presence":
		d := xml.NewTokenDecoder(xmlstream.MultiReader(xmlstream.Token(*start), t))
		err = c.handlePresence(d, start)
	case "message":
		d := xml.NewTokenDecoder(xmlstream.MultiReader(xmlstream.Token(*start), t))
		err = c.handleMessage(d, start)
	case "iq":
		err = c.handleIQ(t, start)
	}
	if err != nil {
		c.logger.Warn().Err(err).
			Str("stanza", start.Name.Local).
			Str("id", attr.Get(start.Attr, "id")).
			Str("from", attr.Get(start.Attr, "from")).
			Msg("dropping stanza")
		if errors.Is(err, ErrMalformedStanza) {
			c.reportMalformed(start, err)
		}
	}
	return nil
}

// reportMalformed emits an ErrorEvent for a stanza that could not be parsed
// if it was sent by a managed room.
func (c *Client) reportMalformed(start *xml.StartElement, err error) {
	from := parseJID(attr.Get(start.Attr, "from"))
	if from.Equal(jid.JID{}) {
		return
	}
	c.roomsM.Lock()
	r, ok := c.rooms[roomKey(from)]
	var addr jid.JID
	if ok {
		addr = r.addr
	}
	c.roomsM.Unlock()
	if !ok {
		return
	}
	c.emitError(ErrorEvent{
		Room: addr,
		From: from,
		ID:   attr.Get(start.Attr, "id"),
		Err:  err,
	})
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedStanza, err)
}

func roomKey(j jid.JID) string {
	return j.Bare().String()
}

// room is the client side state of a room session.
// It is guarded by the client's room lock.
type room struct {
	addr     jid.JID
	nick     string
	password string
	state    SessionState
	privacy  RoomPrivacy
	subject  string

	nonAnonymous bool
	roster       *roster

	joinID  string
	leaveID string
}

// Room is a snapshot of a room managed by the client.
type Room struct {
	// Addr is the bare address of the room.
	Addr  jid.JID
	Nick  string
	State SessionState

	Privacy      RoomPrivacy
	NonAnonymous bool
	Subject      string
	Occupants    int
}

// Me returns our own address in the room.
func (r Room) Me() jid.JID {
	j, err := r.Addr.WithResource(r.Nick)
	if err != nil {
		return r.Addr
	}
	return j
}

func (r *room) snapshot() Room {
	return Room{
		Addr:         r.addr,
		Nick:         r.nick,
		State:        r.state,
		Privacy:      r.privacy,
		NonAnonymous: r.nonAnonymous,
		Subject:      r.subject,
		Occupants:    r.roster.len(),
	}
}

// Room returns a snapshot of a room that is being joined, is joined, or is
// being left.
func (c *Client) Room(addr jid.JID) (Room, bool) {
	c.roomsM.Lock()
	defer c.roomsM.Unlock()
	r, ok := c.rooms[roomKey(addr)]
	if !ok {
		return Room{}, false
	}
	return r.snapshot(), true
}

// Rooms returns snapshots of every room managed by the client.
func (c *Client) Rooms() []Room {
	c.roomsM.Lock()
	defer c.roomsM.Unlock()
	out := make([]Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r.snapshot())
	}
	sortRooms(out)
	return out
}

// roomRef is a copy of the details of a joined room needed to address it.
type roomRef struct {
	addr     jid.JID
	nick     string
	password string
}

// joinedRoom returns the details of a room that has been joined.
func (c *Client) joinedRoom(addr jid.JID) (roomRef, error) {
	c.roomsM.Lock()
	defer c.roomsM.Unlock()
	r, ok := c.rooms[roomKey(addr)]
	if !ok || r.state != Joined {
		return roomRef{}, ErrNotJoined
	}
	return roomRef{addr: r.addr, nick: r.nick, password: r.password}, nil
}

// evict removes the room if it is still r and fails any requests scoped to
// it.
func (c *Client) evict(r *room, reason error) {
	c.roomsM.Lock()
	key := roomKey(r.addr)
	cur, ok := c.rooms[key]
	if ok && cur == r {
		delete(c.rooms, key)
		r.state = NotJoined
	}
	c.roomsM.Unlock()
	if ok && cur == r {
		c.tracker.Cancel(key, reason)
	}
}
