// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package muc implements a Multi-User Chat (MUC) client.
//
// The main entrypoint is the Client type.
// It is an xmpp.Handler that consumes presence, message, and IQ stanzas from a
// session and uses them to keep track of the rooms it has joined, their
// occupants, and the requests it has sent:
//
//	client := muc.New(session, muc.WithLogger(logger))
//	go session.Serve(client)
//	err := client.JoinRoom(ctx, jid.MustParse("bridgecrew@muc.localhost"), "picard")
//
// Once a room is joined the roster can be queried at any time with GetMembers
// and friends, and changes are reported to handlers registered with
// OnMucStatus, OnSubjectChanged, OnMessage, and the invitation handlers.
//
// Operations that have a defined response, such as JoinRoom, SetPrivilege, or
// GetRoomInfo, block until the server answers or the client's timeout elapses.
// Handlers are called on the goroutine that calls HandleXMPP, so they must not
// wait on such operations themselves.
package muc // import "mellium.im/muc"
