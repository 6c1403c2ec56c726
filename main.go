package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danthegoodman1/icecatalog/gologger"
	"github.com/danthegoodman1/icecatalog/http_server"
	"github.com/danthegoodman1/icecatalog/migrations"
	"github.com/danthegoodman1/icecatalog/utils"
)

var logger = gologger.NewLogger()

func main() {
	logger.Debug().Msg("starting icecatalog")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	if utils.METASTORE == "crdb" {
		if err := migrations.CheckMigrations(utils.CRDB_DSN); err != nil {
			logger.Error().Err(err).Msg("error checking migrations")
			os.Exit(1)
		}
	}

	cat, shutdownStores, err := buildCatalog(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("error building catalog")
		os.Exit(1)
	}

	httpServer := http_server.StartHTTPServer(cat)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn().Msg("received shutdown signal!")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown HTTP server")
	} else {
		logger.Info().Msg("successfully shutdown HTTP server")
	}
	shutdownStores(shutdownCtx)
}
