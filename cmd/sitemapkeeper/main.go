package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/sitemapkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/cli"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/config"
	"github.com/dmitrijs2005/sitemapkeeper/internal/dbx"
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
	db, err := dbx.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer db.Close()

	cli.NewApp(cfg, db, logger).Run(ctx)

}
