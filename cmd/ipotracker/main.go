// Command ipotracker tracks IPOs, portfolio holdings and price alerts.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"ipo-tracker/internal/cli"
)

func main() {
	// Until the config is loaded only warnings reach the console.
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()

	if err := cli.NewRootCmd(logger).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
