// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The mucbot command joins a set of multi-user chat rooms and logs everything
// that happens in them.
//
// It is configured through the environment:
//
//	MUCBOT_JID:       the address to log in as (required)
//	MUCBOT_PASSWORD:  the password
//	MUCBOT_NICK:      the default nickname (default "mucbot")
//	MUCBOT_ROOMS:     a comma separated list of rooms to join, a resourcepart
//	                  overrides the nickname
//	MUCBOT_SERVICE:   a chat service whose rooms are listed on startup
//	MUCBOT_TIMEOUT:   how long to wait for the server (default 30s)
//	MUCBOT_LOG_LEVEL: trace, debug, info, warn, or error (default info)
//	MUCBOT_LOG_XML:   log every stanza sent at the trace level
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := loadConfig(nil)
	if err != nil {
		log.Fatal().Err(err).Msgf("set $%s and $%s", envAddr, envPass)
	}
	level, err := cfg.level()
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("bad log level")
	}
	logger := log.Logger.Level(level)

	if cfg.Pass == "" {
		logger.Debug().Msgf("the environment variable $%s is empty", envPass)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("mucbot stopped")
	}
}
