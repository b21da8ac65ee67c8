// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"sort"

	"mellium.im/xmpp/jid"
)

// Occupant is a snapshot of a user present in a room.
type Occupant struct {
	// Room is the bare address of the room the occupant is in.
	Room jid.JID
	Nick string

	// JID is the occupant's real address.
	// It is only known in non-anonymous rooms or to moderators.
	JID jid.JID

	Affiliation  Affiliation
	Role         Role
	Availability Availability
	Status       string
}

// Addr returns the occupant's address in the room (room@service/nick).
func (o Occupant) Addr() jid.JID {
	j, err := o.Room.WithResource(o.Nick)
	if err != nil {
		return o.Room
	}
	return j
}

// Privileges returns the default privileges for the occupant's role.
func (o Occupant) Privileges() Privileges {
	return o.Role.Privileges()
}

// roster holds the occupants of a single room keyed by nickname.
// It is not safe for concurrent use, callers hold the client's room lock.
type roster struct {
	occupants map[string]Occupant
}

func newRoster() *roster {
	return &roster{occupants: make(map[string]Occupant)}
}

// upsert adds or replaces the occupant with o's nickname.
// Occupants with no role are not present in a room, so upserting one removes
// it instead.
func (r *roster) upsert(o Occupant) {
	if o.Role == RoleNone {
		delete(r.occupants, o.Nick)
		return
	}
	r.occupants[o.Nick] = o
}

func (r *roster) remove(nick string) (Occupant, bool) {
	o, ok := r.occupants[nick]
	if ok {
		delete(r.occupants, nick)
	}
	return o, ok
}

// rename moves the occupant at oldNick to newNick in one step.
// Any occupant already using newNick is replaced.
func (r *roster) rename(oldNick, newNick string) bool {
	o, ok := r.occupants[oldNick]
	if !ok {
		return false
	}
	delete(r.occupants, oldNick)
	o.Nick = newNick
	r.occupants[newNick] = o
	return true
}

func (r *roster) get(nick string) (Occupant, bool) {
	o, ok := r.occupants[nick]
	return o, ok
}

func (r *roster) len() int {
	return len(r.occupants)
}

// filter returns the occupants for which f returns true sorted by nickname.
// If f is nil every occupant is returned.
func (r *roster) filter(f func(Occupant) bool) []Occupant {
	out := make([]Occupant, 0, len(r.occupants))
	for _, o := range r.occupants {
		if f == nil || f(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Nick < out[j].Nick
	})
	return out
}

// GetMembers returns the occupants of a managed room sorted by nickname.
// If the room is not managed by the client nil is returned.
func (c *Client) GetMembers(room jid.JID) []Occupant {
	return c.filterMembers(room, nil)
}

// GetMembersByRole returns the occupants of a managed room with the given role.
func (c *Client) GetMembersByRole(room jid.JID, role Role) []Occupant {
	return c.filterMembers(room, func(o Occupant) bool {
		return o.Role == role
	})
}

// GetMembersByAffiliation returns the occupants of a managed room with the
// given affiliation.
func (c *Client) GetMembersByAffiliation(room jid.JID, a Affiliation) []Occupant {
	return c.filterMembers(room, func(o Occupant) bool {
		return o.Affiliation == a
	})
}

func (c *Client) filterMembers(room jid.JID, f func(Occupant) bool) []Occupant {
	c.roomsM.Lock()
	defer c.roomsM.Unlock()
	r, ok := c.rooms[roomKey(room)]
	if !ok {
		return nil
	}
	return r.roster.filter(f)
}

// Occupant looks up a single occupant of a managed room by nickname.
func (c *Client) Occupant(room jid.JID, nick string) (Occupant, bool) {
	c.roomsM.Lock()
	defer c.roomsM.Unlock()
	r, ok := c.rooms[roomKey(room)]
	if !ok {
		return Occupant{}, false
	}
	return r.roster.get(nick)
}

// Count returns the number of occupants in a managed room.
func (c *Client) Count(room jid.JID) int {
	c.roomsM.Lock()
	defer c.roomsM.Unlock()
	r, ok := c.rooms[roomKey(room)]
	if !ok {
		return 0
	}
	return r.roster.len()
}
