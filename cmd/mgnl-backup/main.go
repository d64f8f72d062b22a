package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mgnl-backup: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse subcommand from os.Args
	subcmd := "run"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "run":
		return cmdRun(args)
	case "dry-run":
		return cmdDryRun(args)
	case "status":
		return cmdStatus()
	default:
		return fmt.Errorf("unknown command: %s\nUsage: mgnl-backup [run|dry-run|status]", subcmd)
	}
}
