package main

import (
	"context"
	"log"
	"os"

	"github.com/rizkyab/dicerita/internal/buildinfo"
	"github.com/rizkyab/dicerita/internal/client/cli"
	"github.com/rizkyab/dicerita/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
