package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/ifrederico/shopify-bulkexport/installstate"
	"github.com/ifrederico/shopify-bulkexport/internal/config"
	"github.com/ifrederico/shopify-bulkexport/internal/logging"
	"github.com/ifrederico/shopify-bulkexport/internal/redisconn"
	"github.com/ifrederico/shopify-bulkexport/server"
	"github.com/ifrederico/shopify-bulkexport/shops"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}

	logCloser := logging.Setup(logging.Options{
		Env:   c.GetEnv(),
		Level: c.GetLogLevel(),
		File:  c.GetLogFile(),
	})
	defer logCloser.Close()

	displayAppname(c.GetAppName())

	shopRepo, stateRepo, storeCloser, err := openStores(c)
	if err != nil {
		return err
	}
	defer storeCloser.Close()

	handler, err := server.New(c, shopRepo, stateRepo)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(srv)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// openStores picks the credential and install state backends from STORE_BACKEND.
func openStores(c config.Config) (shops.Repo, installstate.Repo, io.Closer, error) {
	if c.GetStoreBackend() != config.StoreBackendRedis {
		log.Warn().Msg("Using in-memory stores; connected shops are forgotten on restart")
		return shops.NewInMemoryRepo(), installstate.NewInMemoryRepo(), noopCloser{}, nil
	}

	client, err := redisconn.Dial(context.Background(), redisconn.Options{
		Addr:     c.GetRedisAddr(),
		Password: c.GetRedisPassword(),
		DB:       c.GetRedisDB(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	sealer, err := shops.NewSealer(c.GetAPISecret())
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}

	log.Info().Str("addr", c.GetRedisAddr()).Int("db", c.GetRedisDB()).Msg("Using Redis stores")
	return shops.NewRedisRepo(client, sealer), installstate.NewRedisRepo(client), client, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
