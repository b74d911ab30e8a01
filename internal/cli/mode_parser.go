package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeOrder     = "order-service"
	ModeProcessor = "processor"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeOrder, "order":
		return ModeOrder, true
	case ModeProcessor, "processor-service":
		return ModeProcessor, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `order-service --port=3000`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--mode=") {
			mode = strings.TrimPrefix(arg, "--mode=")
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, nil
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage:
  ./orderflow --mode=<service> [flags]

Services (modes):
  order-service    HTTP API for creating orders + consumer of order.processed
  processor        RabbitMQ consumer that processes order.created events

Examples:
  ./orderflow --mode=order-service --port=8000
  ./orderflow --mode=processor --prefetch=1 --health-port=8001`)
}

func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./orderflow --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
