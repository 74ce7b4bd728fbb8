package main

import (
	"os"

	"storefront-sync/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logging.New("info", "text").WithField("component", "migrate").WithError(err).Error("migrate failed")
		os.Exit(1)
	}
}
