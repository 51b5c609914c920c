// SPDX-License-Identifier: Apache-2.0

// Package main is the Helios server entrypoint. All wiring lives in
// pkg/app; this file stays minimal.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/helios-ops/helios/pkg/app"
	"github.com/helios-ops/helios/pkg/config"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file (yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	application := app.New(cfg, *cfgPath)
	if err := application.Run(ctx); err != nil {
		log.Fatalf("app error: %v", err)
	}
}
