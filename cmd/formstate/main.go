package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/goliatone/go-formstate/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx, cli.NewApp(), os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}
