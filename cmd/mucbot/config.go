// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"mellium.im/xmpp/jid"
)

/* #nosec */
const (
	envAddr = "MUCBOT_JID"
	envPass = "MUCBOT_PASSWORD"
)

// config is read from the environment.
type config struct {
	Addr     string        `env:"MUCBOT_JID,required"`
	Pass     string        `env:"MUCBOT_PASSWORD"`
	Nick     string        `env:"MUCBOT_NICK" envDefault:"mucbot"`
	Rooms    []string      `env:"MUCBOT_ROOMS" envSeparator:","`
	Service  string        `env:"MUCBOT_SERVICE"`
	Timeout  time.Duration `env:"MUCBOT_TIMEOUT" envDefault:"30s"`
	LogLevel string        `env:"MUCBOT_LOG_LEVEL" envDefault:"info"`
	LogXML   bool          `env:"MUCBOT_LOG_XML"`
}

func loadConfig(environ map[string]string) (config, error) {
	var cfg config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c config) level() (zerolog.Level, error) {
	return zerolog.ParseLevel(c.LogLevel)
}

func (c config) jid() (jid.JID, error) {
	j, err := jid.Parse(c.Addr)
	if err != nil {
		return jid.JID{}, fmt.Errorf("error parsing address %q: %w", c.Addr, err)
	}
	return j, nil
}

// rooms parses the rooms to join.
// Rooms with a resourcepart use it as the nickname in that room.
func (c config) rooms() ([]jid.JID, error) {
	out := make([]jid.JID, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		if r == "" {
			continue
		}
		j, err := jid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("error parsing room %q: %w", r, err)
		}
		out = append(out, j)
	}
	return out, nil
}

// nickFor returns the nickname to join room with.
// It is empty if the room address carries its own nickname.
func (c config) nickFor(room jid.JID) string {
	if room.Resourcepart() != "" {
		return ""
	}
	return c.Nick
}
