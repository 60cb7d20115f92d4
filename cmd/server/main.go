// Package main implements the entry point for the nudge server, which
// turns natural-language messages into tasks and delivers reminders
// when they come due.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aviraln/nudge/internal/auth"
	"github.com/aviraln/nudge/internal/config"
	"github.com/aviraln/nudge/internal/platform/logger"
)

func main() {
	issueTokenUser := flag.String("issue-token", "", "print a bearer token for the given user ID and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	ctx := context.Background()

	// Operational helper for onboarding a messaging channel: mint a
	// token without starting the server.
	if *issueTokenUser != "" {
		tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, 0)
		if err != nil {
			logg.Error("Failed to create token service", "error", err)
			os.Exit(1)
		}
		token, err := tokens.GenerateToken(ctx, *issueTokenUser)
		if err != nil {
			logg.Error("Failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	app, err := newApplication(ctx, cfg, logg)
	if err != nil {
		logg.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := app.start(ctx); err != nil {
		app.cleanup()
		logg.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	logg.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"model", cfg.LLM.ModelName)

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		logg.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
