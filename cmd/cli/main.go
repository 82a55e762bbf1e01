package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/stagewalk/internal/app"
	"github.com/vk/stagewalk/internal/cli"
)

func main() {
	// Minimal logger until the configured one takes over.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run holds the main logic so tests can drive it with a buffer.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, perr := cli.Parse(args, outW)
	if perr != nil {
		return perr
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical startup errors; recover into a clean exit.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	a := app.NewApp(outW, appConfig)
	return a.Run(context.Background(), appConfig)
}
