// Package cli wires the fee-manager service together and runs it.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/ethvouch/fee-manager/audit"
	"github.com/ethvouch/fee-manager/auth"
	"github.com/ethvouch/fee-manager/config"
	"github.com/ethvouch/fee-manager/database"
	"github.com/ethvouch/fee-manager/muxset"
	"github.com/ethvouch/fee-manager/resolver"
	"github.com/ethvouch/fee-manager/server"
)

const shutdownTimeout = 10 * time.Second

var log = logrus.NewEntry(logrus.New())

// Main starts the fee-manager cli
func Main() {
	app := &cli.Command{
		Name:   "fee-manager",
		Usage:  "serve layered fee and relay configuration to validator clients",
		Flags:  flags,
		Action: start,
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func start(ctx context.Context, cmd *cli.Command) error {
	// perhaps only print the version
	if cmd.Bool(versionFlag.Name) {
		fmt.Printf("fee-manager %s\n", config.Version) //nolint
		return nil
	}

	setupLogging(cmd)

	dbConfig, err := database.ConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("invalid database configuration")
	}
	store, err := database.NewPostgresStore(ctx, dbConfig, log)
	if err != nil {
		log.WithError(err).Fatal("failed connecting to the database")
	}
	defer store.Close()

	authService := auth.NewService(store, log)
	bootstrapToken, err := authService.EnsureDefaultToken(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed ensuring a default auth token")
	}
	if bootstrapToken != "" {
		// Printed exactly once, on the very first start. It cannot be
		// recovered later.
		log.WithField("token", bootstrapToken).Warn("created bootstrap admin token, store it now")
	}

	auditLogger, err := newAuditLogger(cmd)
	if err != nil {
		log.WithError(err).Fatal("failed opening the audit log")
	}

	listenAddr := cmd.String(addrFlag.Name)
	service, err := server.NewService(server.ServiceOpts{
		ListenAddr: listenAddr,
		Store:      store,
		Resolver:   resolver.NewEngine(store, log),
		Muxes:      muxset.NewManager(store, log),
		Auth:       authService,
		Audit:      auditLogger,
		Log:        log,
		Timeouts: server.HTTPServerTimeouts{
			Read:       time.Duration(config.ServerReadTimeoutMs) * time.Millisecond,
			ReadHeader: time.Duration(config.ServerReadHeaderTimeoutMs) * time.Millisecond,
			Write:      time.Duration(config.ServerWriteTimeoutMs) * time.Millisecond,
			Idle:       time.Duration(config.ServerIdleTimeoutMs) * time.Millisecond,
		},
	})
	if err != nil {
		log.WithError(err).Fatal("failed creating the server")
	}

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", listenAddr)
		serverErr <- service.StartHTTPServer()
	}()

	select {
	case sig := <-exit:
		log.Infof("received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := service.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
		return nil
	case err := <-serverErr:
		return err
	}
}

func setupLogging(cmd *cli.Command) {
	log.Logger.SetOutput(os.Stdout)
	if cmd.Bool(jsonFlag.Name) {
		log.Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	logLevel := cmd.String(logLevelFlag.Name)
	if cmd.Bool(debugFlag.Name) {
		logLevel = "debug"
	}
	if logLevel != "" {
		lvl, err := logrus.ParseLevel(logLevel)
		if err != nil {
			log.Fatalf("invalid loglevel: %s", logLevel)
		}
		log.Logger.SetLevel(lvl)
	}
	if service := cmd.String(logServiceFlag.Name); service != "" {
		log = log.WithField("service", service)
	}

	if cmd.Bool(logNoVersionFlag.Name) {
		log.Infof("starting fee-manager %s", config.Version)
	} else {
		log = log.WithField("version", config.Version)
		log.Infof("starting fee-manager")
	}
	log.Debug("debug logging enabled")
}

func newAuditLogger(cmd *cli.Command) (*audit.Logger, error) {
	if cmd.Bool(auditDisabledFlag.Name) {
		return audit.NewNopLogger(), nil
	}
	path := cmd.String(auditLogFlag.Name)
	if path == "" {
		return audit.NewLogger(os.Stdout), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return audit.NewLogger(f), nil
}
