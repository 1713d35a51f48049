package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := newRootCommand(cancel).ExecuteContext(ctx); err != nil {
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}
