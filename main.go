package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"orderflow/cmd/orderservice"
	"orderflow/cmd/processor"
	"orderflow/internal/cli"
)

func main() {
	// check for help flag first
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	if mode == "" {
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case cli.ModeOrder:
		fs := flag.NewFlagSet(cli.ModeOrder, flag.ContinueOnError)
		port := fs.Int("port", 0, "HTTP port for the API (0 = from config)")
		cli.AttachUsage(fs, cli.ModeOrder)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}

		if *port < 0 || *port > 65535 {
			fmt.Fprintln(os.Stderr, "Error: --port must be between 0 and 65535")
			fs.Usage()
			os.Exit(2)
		}

		if err := orderservice.Run(ctx, *port); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeProcessor:
		fs := flag.NewFlagSet(cli.ModeProcessor, flag.ContinueOnError)
		prefetch := fs.Int("prefetch", 0, "RabbitMQ prefetch count (0 = from config)")
		healthPort := fs.Int("health-port", 8001, "HTTP port for the liveness endpoint")
		cli.AttachUsage(fs, cli.ModeProcessor)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}

		if *prefetch < 0 {
			fmt.Fprintln(os.Stderr, "Error: --prefetch must be >= 0")
			fs.Usage()
			os.Exit(2)
		}
		if *healthPort <= 0 || *healthPort > 65535 {
			fmt.Fprintln(os.Stderr, "Error: --health-port must be between 1 and 65535")
			fs.Usage()
			os.Exit(2)
		}

		if err := processor.Run(ctx, *prefetch, *healthPort); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	}
}
