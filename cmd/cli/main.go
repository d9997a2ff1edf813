package main

import (
	"context"
	"log"
	"os"

	"github.com/showmeapp/showme/internal/buildinfo"
	"github.com/showmeapp/showme/internal/client/cli"
	"github.com/showmeapp/showme/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
