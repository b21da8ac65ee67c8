// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"strconv"
)

// Status is a status condition attached to room presence or messages.
// Unlike the raw protocol codes the set of statuses is closed: codes that are
// not listed here are dropped when a stanza is parsed.
type Status uint16

// A list of known status conditions, valued by their protocol code.
const (
	// Any occupant is allowed to see the user's real JID.
	StatusNonAnonymous Status = 100
	// The user's affiliation changed while not in the room.
	StatusAffiliationChanged Status = 101
	// The room now shows unavailable members.
	StatusShowsUnavailable Status = 102
	// The room no longer shows unavailable members.
	StatusHidesUnavailable Status = 103
	// A non-privacy-related room configuration change has occurred.
	StatusConfigChanged Status = 104
	// The presence refers to the receiving user.
	StatusSelf Status = 110
	// Room logging is now enabled.
	StatusLoggingEnabled Status = 170
	// Room logging is now disabled.
	StatusLoggingDisabled Status = 171
	// The room is now non-anonymous.
	StatusNowNonAnonymous Status = 172
	// The room is now semi-anonymous.
	StatusNowSemiAnonymous Status = 173
	// The room is now fully-anonymous.
	StatusNowFullyAnonymous Status = 174
	// A new room has been created.
	StatusRoomCreated Status = 201
	// The service has assigned or modified the occupant's nickname.
	StatusNickAssigned Status = 210
	// The user has been banned from the room.
	StatusBanned Status = 301
	// The occupant's nickname is being changed.
	StatusNickChanged Status = 303
	// The user has been kicked from the room.
	StatusKicked Status = 307
	// The user is removed because of an affiliation change.
	StatusRemovedAffiliation Status = 321
	// The user is removed because the room is now members-only.
	StatusRemovedMembersOnly Status = 322
	// The user is removed because of a system shutdown.
	StatusRemovedShutdown Status = 332
	// The user is removed because of a technical problem.
	StatusRemovedError Status = 333
)

var statusNames = map[Status]string{
	StatusNonAnonymous:       "non-anonymous",
	StatusAffiliationChanged: "affiliation-changed",
	StatusShowsUnavailable:   "shows-unavailable",
	StatusHidesUnavailable:   "hides-unavailable",
	StatusConfigChanged:      "config-changed",
	StatusSelf:               "self",
	StatusLoggingEnabled:     "logging-enabled",
	StatusLoggingDisabled:    "logging-disabled",
	StatusNowNonAnonymous:    "now-non-anonymous",
	StatusNowSemiAnonymous:   "now-semi-anonymous",
	StatusNowFullyAnonymous:  "now-fully-anonymous",
	StatusRoomCreated:        "room-created",
	StatusNickAssigned:       "nick-assigned",
	StatusBanned:             "banned",
	StatusNickChanged:        "nick-changed",
	StatusKicked:             "kicked",
	StatusRemovedAffiliation: "removed-affiliation",
	StatusRemovedMembersOnly: "removed-members-only",
	StatusRemovedShutdown:    "removed-shutdown",
	StatusRemovedError:       "removed-error",
}

// StatusFromCode returns the status for a protocol code.
// If the code is not a known status ok is false.
func StatusFromCode(code int) (s Status, ok bool) {
	s = Status(code)
	if code < 0 || code > 999 {
		return 0, false
	}
	_, ok = statusNames[s]
	if !ok {
		return 0, false
	}
	return s, true
}

// Code returns the protocol code of the status.
func (s Status) Code() int {
	return int(s)
}

// String returns a short name for the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Removed reports whether the status indicates that the occupant was removed
// from the room by the service.
func (s Status) Removed() bool {
	switch s {
	case StatusBanned, StatusKicked, StatusRemovedAffiliation, StatusRemovedMembersOnly, StatusRemovedShutdown, StatusRemovedError:
		return true
	}
	return false
}

// Statuses is a set of status conditions in the order they were received.
type Statuses []Status

// Has reports whether s contains the status.
func (s Statuses) Has(status Status) bool {
	for _, v := range s {
		if v == status {
			return true
		}
	}
	return false
}

func parseStatuses(codes []statusCode) (Statuses, []int) {
	var out Statuses
	var unknown []int
	for _, c := range codes {
		s, ok := StatusFromCode(c.Code)
		if !ok {
			unknown = append(unknown, c.Code)
			continue
		}
		if !out.Has(s) {
			out = append(out, s)
		}
	}
	return out, unknown
}
