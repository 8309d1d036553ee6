package main

import (
	"context"
	"fmt"
	"os"

	"github.com/luftkuhl/ninethree-backend/internal/app"
	"github.com/luftkuhl/ninethree-backend/internal/platform/shutdown"
)

func main() {
	ctx, cancel := shutdown.NotifyContext(context.Background())
	defer cancel()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		a.Log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
}
