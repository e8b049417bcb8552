package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Gunvolt24/mq_listener/config"
	"github.com/Gunvolt24/mq_listener/internal/app"
	"github.com/Gunvolt24/mq_listener/internal/errs"
)

// Коды выхода процесса.
const (
	exitOK         = 0
	exitConfig     = 1
	exitNaming     = 2
	exitBroker     = 3
	exitUnexpected = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.Bootstrap(ctx, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		return exitCode(err)
	}
	defer cleanup()

	if err := a.Run(ctx); err != nil {
		a.Logger.Errorf(ctx, "listener failed: %v", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode — сопоставление типизированных ошибок кодам выхода.
func exitCode(err error) int {
	var (
		cErr *errs.ConfigError
		nErr *errs.NamingError
		bErr *errs.BrokerError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cErr):
		return exitConfig
	case errors.As(err, &nErr):
		return exitNaming
	case errors.As(err, &bErr):
		return exitBroker
	default:
		return exitUnexpected
	}
}
