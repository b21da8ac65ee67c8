// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"time"

	"mellium.im/xmpp/jid"
)

// ErrorEvent is emitted when a room or service answers with an error that is
// not consumed by a blocking call, or when a managed room sends a stanza that
// cannot be parsed.
type ErrorEvent struct {
	// Room is the bare address of the room the error relates to.
	Room jid.JID
	From jid.JID
	// ID is the ID of the stanza that caused the error, if any.
	ID string
	// Err is a *ResponseError for errors returned by the room and matches
	// ErrMalformedStanza for stanzas that could not be parsed.
	Err error
}

// StatusEvent is emitted for every occupant presence received from a managed
// room and for room messages carrying status codes.
type StatusEvent struct {
	Room     jid.JID
	Occupant Occupant
	Statuses Statuses

	// Self is true if the presence refers to the user of this client.
	Self bool

	// NewNick is set when the occupant is changing their nickname.
	NewNick string

	// Actor and Reason describe who removed or changed the occupant and why, if
	// the room disclosed it.
	Actor  string
	Reason string

	// Destroyed is set when the room was destroyed, Alternate is the address
	// of a replacement venue suggested by the owner, if any.
	Destroyed bool
	Alternate jid.JID
}

// Has reports whether the event carries the status.
func (e StatusEvent) Has(s Status) bool {
	return e.Statuses.Has(s)
}

// SubjectEvent is emitted when the subject of a managed room changes,
// including the subject sent when the room is first joined.
type SubjectEvent struct {
	Room    jid.JID
	Nick    string
	Subject string

	// Delayed is true when the subject was set before the room was joined.
	Delayed bool
}

// Message is a groupchat message received from a room.
type Message struct {
	Room jid.JID
	Nick string
	ID   string
	Body string

	// Delayed is true for messages replayed from the room history.
	// Stamp is the time the message was originally sent.
	Delayed bool
	Stamp   time.Time
}

// OnInviteReceived registers f to be called for every direct or mediated
// invitation received.
func (c *Client) OnInviteReceived(f func(Invite)) {
	c.listenersM.Lock()
	defer c.listenersM.Unlock()
	c.onInvite = append(c.onInvite, f)
}

// OnInviteDeclined registers f to be called when an invitee declines an
// invitation.
func (c *Client) OnInviteDeclined(f func(Invite)) {
	c.listenersM.Lock()
	defer c.listenersM.Unlock()
	c.onDecline = append(c.onDecline, f)
}

// OnErrorResponse registers f to be called for errors received from rooms.
func (c *Client) OnErrorResponse(f func(ErrorEvent)) {
	c.listenersM.Lock()
	defer c.listenersM.Unlock()
	c.onError = append(c.onError, f)
}

// OnMucStatus registers f to be called for occupant changes and status codes.
func (c *Client) OnMucStatus(f func(StatusEvent)) {
	c.listenersM.Lock()
	defer c.listenersM.Unlock()
	c.onStatus = append(c.onStatus, f)
}

// OnSubjectChanged registers f to be called when a room subject changes.
func (c *Client) OnSubjectChanged(f func(SubjectEvent)) {
	c.listenersM.Lock()
	defer c.listenersM.Unlock()
	c.onSubject = append(c.onSubject, f)
}

// OnMessage registers f to be called for groupchat messages.
func (c *Client) OnMessage(f func(Message)) {
	c.listenersM.Lock()
	defer c.listenersM.Unlock()
	c.onMessage = append(c.onMessage, f)
}

// emitInvite and the other emit functions call listeners synchronously, in
// the order they were registered, with no client locks held so that they may
// call back into the client.
// Listeners must not block on requests that need the dispatch path to make
// progress.
func (c *Client) emitInvite(i Invite) {
	c.listenersM.RLock()
	l := c.onInvite
	c.listenersM.RUnlock()
	for _, f := range l {
		f(i)
	}
}

func (c *Client) emitDecline(i Invite) {
	c.listenersM.RLock()
	l := c.onDecline
	c.listenersM.RUnlock()
	for _, f := range l {
		f(i)
	}
}

func (c *Client) emitError(e ErrorEvent) {
	c.logger.Debug().Str("room", e.Room.String()).Str("id", e.ID).Err(e.Err).Msg("error response")
	c.listenersM.RLock()
	l := c.onError
	c.listenersM.RUnlock()
	for _, f := range l {
		f(e)
	}
}

func (c *Client) emitStatus(e StatusEvent) {
	c.listenersM.RLock()
	l := c.onStatus
	c.listenersM.RUnlock()
	for _, f := range l {
		f(e)
	}
}

func (c *Client) emitSubject(e SubjectEvent) {
	c.listenersM.RLock()
	l := c.onSubject
	c.listenersM.RUnlock()
	for _, f := range l {
		f(e)
	}
}

func (c *Client) emitMessage(m Message) {
	c.listenersM.RLock()
	l := c.onMessage
	c.listenersM.RUnlock()
	for _, f := range l {
		f(m)
	}
}
