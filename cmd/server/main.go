package main

import (
	"context"
	"log"
	"os"

	"github.com/showmeapp/showme/internal/buildinfo"
	"github.com/showmeapp/showme/internal/server"
	"github.com/showmeapp/showme/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
