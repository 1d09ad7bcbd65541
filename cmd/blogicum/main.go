package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"blogicum/internal/app"
	"blogicum/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.OpenStores)
	app.Must(root.ExecuteContext(ctx))
}
