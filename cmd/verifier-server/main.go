package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/diplomachain/cmd/flags"
	"github.com/ruteri/diplomachain/common"
	"github.com/ruteri/diplomachain/httpserver"
	"github.com/ruteri/diplomachain/metrics"
	"github.com/ruteri/diplomachain/storage"
	"github.com/ruteri/diplomachain/verification"
	"github.com/urfave/cli/v2"
)

var flagArchive = &cli.StringSliceFlag{
	Name:    "archive",
	Usage:   "storage URIs of the document archive served under /api/public/documents",
	EnvVars: []string{"DIPLOMACHAIN_ARCHIVE"},
}

func main() {
	serverFlags := append([]cli.Flag{flags.LogServiceFlagFn("verifier-server"), flagArchive}, flags.LogFlags...)
	serverFlags = append(serverFlags, flags.LedgerFlags...)
	serverFlags = append(serverFlags, flags.ServerFlags...)

	app := &cli.App{
		Name:  "verifier-server",
		Usage: "Serve the public diploma verification API",
		Flags: serverFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))

			metricsSrv, err := metrics.NewServer(common.ServiceName, cfg.MetricsAddr)
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}
			m := metrics.New(metricsSrv.Registry)

			env, err := flags.NewEnv(cCtx, logger, m)
			if err != nil {
				logger.Error("Failed to set up ledger access", "err", err)
				return err
			}
			defer env.Close()

			client, err := env.Client(cCtx.Context)
			if err != nil {
				logger.Error("Failed to connect to the registry", "err", err)
				return err
			}
			deployment := client.Deployment()
			logger.Info("Verifying against registry",
				"network", deployment.NetworkKey,
				"chainID", deployment.ChainID,
				"registry", deployment.RegistryAddress)

			engine, err := verification.NewEngine(client,
				verification.WithLogger(logger),
				verification.WithMetrics(m))
			if err != nil {
				return err
			}

			var archive *storage.Archive
			if uris := cCtx.StringSlice(flagArchive.Name); len(uris) > 0 {
				backend, err := storage.NewStorageBackendFactory(logger).BackendFromURIs(uris)
				if err != nil {
					return fmt.Errorf("could not open archive storage: %w", err)
				}
				archive = storage.NewArchive(backend, nil, logger)
				logger.Info("Serving archived documents", "storage", backend.LocationURI())
			}

			handler := httpserver.NewHandler(engine, client, archive, deployment, logger)
			server, err := httpserver.New(cfg, handler, metricsSrv)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
