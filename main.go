package main

import (
	"github.com/tphakala/birdstream/cmd"
	"github.com/tphakala/birdstream/internal/conf"
	"github.com/tphakala/birdstream/internal/logging"
)

func main() {
	logging.Init()

	// Settings fall back to documented defaults when no config file is
	// found or loading fails; the service always starts.
	settings := conf.Setting()

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal("command failed", "error", err)
	}
}
