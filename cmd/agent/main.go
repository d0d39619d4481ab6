package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/sitemapkeeper/internal/agent"
	"github.com/dmitrijs2005/sitemapkeeper/internal/agent/config"
	"github.com/dmitrijs2005/sitemapkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger := logging.NewConsole(level)

	ctx := context.Background()
	app, err := agent.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
