// Package main provides the chat server daemon. It accepts TCP
// clients, negotiates nicknames, and relays chat, emotes, and private
// messages between them using the line protocol in internal/proto.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/chatserver/internal/chat"
	"github.com/cory-johannsen/chatserver/internal/config"
	"github.com/cory-johannsen/chatserver/internal/observability"
	"github.com/cory-johannsen/chatserver/internal/server"
	"github.com/cory-johannsen/chatserver/internal/transport"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	limits := cfg.Limits.Proto()
	logger.Info("starting chatd",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("max_clients", limits.MaxClients),
		zap.Int("wire_line_max", limits.WireLineMax()),
	)

	motd, err := chat.LoadMotd(cfg.Motd.Path)
	if err != nil {
		logger.Fatal("loading motd", zap.Error(err))
	}

	// Build services
	registry := chat.NewRegistry(limits)
	handler := chat.NewHandler(registry, limits, cfg.Server, motd, logger)
	acceptor := transport.NewAcceptor(cfg.Server, limits, handler, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("acceptor", &server.FuncService{
		StartFn: func() error {
			return acceptor.ListenAndServe()
		},
		StopFn: func() {
			acceptor.Stop()
		},
	})

	logger.Info("chatd initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
