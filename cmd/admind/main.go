package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/HCMUS-Qrenso/qrenso-admin/api"
	"github.com/HCMUS-Qrenso/qrenso-admin/broadcast"
	"github.com/HCMUS-Qrenso/qrenso-admin/internal/config"
	"github.com/HCMUS-Qrenso/qrenso-admin/server"
	"github.com/HCMUS-Qrenso/qrenso-admin/session"
	"github.com/HCMUS-Qrenso/qrenso-admin/tenants"
	"github.com/HCMUS-Qrenso/qrenso-admin/token"
	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg := config.New()
	setupLogging(cfg)
	displayAppname(cfg.GetAppName())

	srv, cleanup, err := buildServer(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	go func() {
		log.Info().Str("port", cfg.GetPort()).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server start failed")
		}
	}()

	waitForStopSignal()
	return shutdown(srv)
}

// buildServer is the composition root: one token manager, one tenant
// context, one session store per process, wired together through the
// intercepting http transport chain.
func buildServer(cfg config.Config) (*server.Server, func(), error) {
	tokenManager := token.NewManager(nil)
	tenantContext := tenants.NewContext()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[buildServer] cookie jar")
	}

	httpClient := &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
		Transport: &tenants.Transport{
			Context: tenantContext,
			Base: &token.Transport{
				Manager: tokenManager,
			},
		},
	}

	backend, err := api.NewClient(cfg.GetBackendBaseURL(), httpClient)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[buildServer] api client")
	}

	// The refresh call goes through the API client, which in turn sends its
	// traffic through the token transport; wire the cycle up here.
	tokenManager.SetRefreshFunc(func(ctx context.Context) (string, error) {
		res, err := backend.Refresh(ctx)
		if err != nil {
			return "", err
		}
		return res.AccessToken, nil
	})

	bus, closeBus, err := buildBus(cfg)
	if err != nil {
		return nil, nil, err
	}

	store := session.NewStore(tokenManager, tenantContext, bus, backend)
	cleanup := func() {
		store.Close()
		closeBus()
	}

	return server.New(cfg, store, backend), cleanup, nil
}

func buildBus(cfg config.Config) (broadcast.Bus, func(), error) {
	addr := cfg.GetRedisAddr()
	if addr == "" {
		bus := broadcast.NewMemoryBroker().NewBus()
		return bus, func() { _ = bus.Close() }, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	bus, err := broadcast.NewRedisBus(context.Background(), client, cfg.GetLogoutChannel())
	if err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "[buildBus] redis bus")
	}

	log.Info().Str("addr", addr).Str("channel", cfg.GetLogoutChannel()).Msg("logout broadcast via redis")
	return bus, func() {
		_ = bus.Close()
		_ = client.Close()
	}, nil
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.GetEnv() == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(srv *server.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
