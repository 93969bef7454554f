package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/crateapi/internal/cli"
	errs "github.com/matzehuels/crateapi/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := cli.Execute(ctx)
	switch {
	case err == nil:
	case errors.Is(err, cli.ErrBreaking):
		os.Exit(1)
	case errors.Is(err, context.Canceled):
		os.Exit(130) // Standard shell convention for SIGINT
	default:
		if code := errs.GetCode(err); code != "" {
			fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", code, errs.UserMessage(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
