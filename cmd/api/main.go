package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-roster-go")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, config.Description())
		sugar.Fatalf("config: %v", err)
	}

	// init db
	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(db, cfg.BcryptCost, sugar)
	if err := a.EnsureSchema(ctx); err != nil {
		sugar.Fatalf("%v", err)
	}
	if created, err := a.Identity.Bootstrap(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password); err != nil {
		sugar.Fatalf("bootstrap admin: %v", err)
	} else if created {
		sugar.Infow("bootstrap admin ready", "username", cfg.Bootstrap.Username)
	}

	mode, err := auth.ParseExpiryMode(cfg.Token.ExpiryMode)
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}
	tokens, err := auth.NewTokenService(cfg.Token.Secret, cfg.Token.Issuer, cfg.Token.TTL, auth.WithExpiryMode(mode))
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}

	handler := router.RegisterRoutes(sugar, router.Deps{
		Auth:     auth.NewHandler(tokens, a.Accounts, sugar),
		Tokens:   tokens,
		Lookup:   a.Accounts,
		Accounts: account.NewHandler(a.Accounts, sugar),
		Identity: identity.NewHandler(a.Identity, sugar),
		DB:       db,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		sugar.Infow("listening", "addr", cfg.HTTPAddr, "token_expiry", mode, "token_ttl", tokens.TTL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
