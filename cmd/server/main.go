package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/FreeVigilance/HappyBarrier/internal/app"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if err := app.Migrate(ctx, *configPath); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		return
	}

	if err := app.RunServer(ctx, *configPath); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
