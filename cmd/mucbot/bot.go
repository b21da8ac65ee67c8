// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"mellium.im/sasl"
	"mellium.im/xmlstream"
	"mellium.im/xmpp"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/muc"
	"mellium.im/muc/bus"
)

type logWriter struct {
	logger zerolog.Logger
	dir    string
}

func (lw logWriter) Write(p []byte) (int, error) {
	lw.logger.Trace().Str("dir", lw.dir).Msg(string(p))
	return len(p), nil
}

func run(ctx context.Context, cfg config, logger zerolog.Logger) error {
	j, err := cfg.jid()
	if err != nil {
		return err
	}
	rooms, err := cfg.rooms()
	if err != nil {
		return err
	}

	features := []xmpp.StreamFeature{
		xmpp.BindResource(),
		xmpp.StartTLS(&tls.Config{
			ServerName: j.Domain().String(),
			MinVersion: tls.VersionTLS12,
		}),
		xmpp.SASL("", cfg.Pass, sasl.ScramSha1Plus, sasl.ScramSha1, sasl.Plain),
	}
	s, err := xmpp.DialClientSession(ctx, j, features...)
	if err != nil {
		return fmt.Errorf("error establishing a session: %w", err)
	}
	defer func() {
		logger.Info().Msg("closing connection")
		if err := s.Conn().Close(); err != nil {
			logger.Error().Err(err).Msg("error closing connection")
		}
	}()

	tee := teeSession{Session: s}
	if cfg.LogXML {
		tee.out = logWriter{logger: logger.With().Str("module", "xml").Logger(), dir: "out"}
	}
	b := bus.New(tee, logger)
	client := muc.New(b,
		muc.WithLogger(logger),
		muc.WithTimeout(cfg.Timeout),
	)
	register(client, logger)

	// Send initial presence to let the server know we want to receive messages.
	err = s.Send(ctx, stanza.Presence{Type: stanza.AvailablePresence}.Wrap(nil))
	if err != nil {
		return fmt.Errorf("error sending initial presence: %w", err)
	}

	served := make(chan error, 1)
	go func() {
		served <- b.Serve(client)
	}()

	if cfg.Service != "" {
		service, err := jid.Parse(cfg.Service)
		if err != nil {
			return fmt.Errorf("error parsing service %q: %w", cfg.Service, err)
		}
		listRooms(ctx, client, service, logger)
	}

	for _, room := range rooms {
		err := client.JoinRoom(ctx, room, cfg.nickFor(room))
		if err != nil {
			logger.Error().Err(err).Str("room", room.String()).Msg("error joining room")
			continue
		}
		logger.Info().Str("room", room.Bare().String()).Int("occupants", client.Count(room)).Msg("joined room")
	}

	select {
	case err = <-served:
		return err
	case <-ctx.Done():
	}

	leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer leaveCancel()
	for _, r := range client.Rooms() {
		if r.State != muc.Joined {
			continue
		}
		if err := client.LeaveRoom(leaveCtx, r.Addr, ""); err != nil {
			logger.Warn().Err(err).Str("room", r.Addr.String()).Msg("error leaving room")
		}
	}
	logger.Info().Msg("closing session")
	if err := s.Close(); err != nil {
		return fmt.Errorf("error closing session: %w", err)
	}
	return nil
}

func listRooms(ctx context.Context, client *muc.Client, service jid.JID, logger zerolog.Logger) {
	iter, err := client.DiscoverRooms(ctx, service)
	if err != nil {
		logger.Error().Err(err).Str("service", service.String()).Msg("error listing rooms")
		return
	}
	defer iter.Close()
	for iter.Next() {
		room := iter.Room()
		logger.Info().Str("room", room.JID.String()).Str("name", room.Name).Msg("found room")
	}
	if err := iter.Err(); err != nil {
		logger.Error().Err(err).Msg("error iterating over rooms")
	}
}

// register logs every event emitted by the client.
func register(client *muc.Client, logger zerolog.Logger) {
	client.OnMessage(func(m muc.Message) {
		logger.Info().
			Str("room", m.Room.String()).
			Str("nick", m.Nick).
			Bool("delayed", m.Delayed).
			Msg(m.Body)
	})
	client.OnSubjectChanged(func(e muc.SubjectEvent) {
		logger.Info().Str("room", e.Room.String()).Str("nick", e.Nick).Str("subject", e.Subject).Msg("subject changed")
	})
	client.OnMucStatus(func(e muc.StatusEvent) {
		ev := logger.Debug().
			Str("room", e.Room.String()).
			Str("nick", e.Occupant.Nick).
			Stringer("role", e.Occupant.Role).
			Stringer("affiliation", e.Occupant.Affiliation).
			Stringer("availability", e.Occupant.Availability).
			Bool("self", e.Self)
		if e.NewNick != "" {
			ev = ev.Str("new_nick", e.NewNick)
		}
		ev.Msg("occupant status")
	})
	client.OnErrorResponse(func(e muc.ErrorEvent) {
		logger.Warn().Str("room", e.Room.String()).Str("id", e.ID).Err(e.Err).Msg("error from room")
	})
	client.OnInviteReceived(func(inv muc.Invite) {
		logger.Info().
			Str("room", inv.Room.String()).
			Str("from", inv.From.String()).
			Bool("direct", inv.Direct()).
			Str("reason", inv.Reason).
			Msg("received invitation")
	})
	client.OnInviteDeclined(func(inv muc.Invite) {
		logger.Info().Str("room", inv.Room.String()).Str("from", inv.ReceivedFrom().String()).Msg("invitation declined")
	})
}

// teeSession copies every outbound stanza to out, if set.
type teeSession struct {
	*xmpp.Session
	out io.Writer
}

func (t teeSession) Send(ctx context.Context, r xml.TokenReader) error {
	if t.out == nil {
		return t.Session.Send(ctx, r)
	}
	e := xml.NewEncoder(t.out)
	err := t.Session.Send(ctx, xmlstream.TeeReader(r, e))
	if flushErr := e.Flush(); err == nil {
		err = flushErr
	}
	return err
}
