// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"errors"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/muc/internal/track"
)

// ErrTimeout is returned when the server does not answer a request before the
// client's timeout.
var ErrTimeout = track.ErrTimeout

// Errors that correspond to error conditions returned by the room or service.
// They are matched by errors.Is against any ResponseError.
var (
	ErrForbidden            = errors.New("muc: forbidden")
	ErrNotAllowed           = errors.New("muc: not allowed")
	ErrConflict             = errors.New("muc: conflict")
	ErrItemNotFound         = errors.New("muc: item not found")
	ErrRegistrationRequired = errors.New("muc: registration required")
	ErrServiceUnavailable   = errors.New("muc: service unavailable")
	ErrNotAuthorized        = errors.New("muc: not authorized")
)

// Errors returned by the client without involving the server.
var (
	ErrMalformedStanza     = errors.New("muc: malformed stanza")
	ErrNotJoined           = errors.New("muc: room not joined")
	ErrAlreadyJoined       = errors.New("muc: room already joined")
	ErrRoomLeft            = errors.New("muc: room was left")
	ErrRoomDestroyed       = errors.New("muc: room was destroyed")
	ErrInvalidInvite       = errors.New("muc: invalid invitation")
	ErrInvalidAvailability = errors.New("muc: use LeaveRoom to become unavailable")
	ErrNoNickname          = errors.New("muc: no nickname provided")
)

var conditionErrors = map[stanza.Condition]error{
	stanza.Forbidden:            ErrForbidden,
	stanza.NotAllowed:           ErrNotAllowed,
	stanza.Conflict:             ErrConflict,
	stanza.ItemNotFound:         ErrItemNotFound,
	stanza.RegistrationRequired: ErrRegistrationRequired,
	stanza.ServiceUnavailable:   ErrServiceUnavailable,
	stanza.NotAuthorized:        ErrNotAuthorized,
}

// ResponseError is an error returned by the server in response to a request.
//
// It unwraps to the stanza error and, when the condition is one of the
// conditions listed above, to the matching sentinel error so that both
// errors.Is(err, ErrConflict) and errors.As(err, &stanza.Error{}) work.
type ResponseError struct {
	From jid.JID
	Err  stanza.Error
}

// Error satisfies the error interface.
func (e *ResponseError) Error() string {
	msg := "muc: error response"
	if !e.From.Equal(jid.JID{}) {
		msg += " from " + e.From.String()
	}
	return msg + ": " + e.Err.Error()
}

// Condition returns the defined condition of the stanza error.
func (e *ResponseError) Condition() stanza.Condition {
	return e.Err.Condition
}

// Unwrap returns the sentinel for the error condition, if any, and the stanza
// error.
func (e *ResponseError) Unwrap() []error {
	if sentinel, ok := conditionErrors[e.Err.Condition]; ok {
		return []error{sentinel, e.Err}
	}
	return []error{e.Err}
}
