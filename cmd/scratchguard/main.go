package main

import (
	"errors"
	"os"
	"os/exec"

	"scratchguard/cmd/scratchguard/cmd"
	"scratchguard/pkg/log"
)

func main() {
	// Initialize logger first
	_ = log.Logger

	if err := cmd.Execute(); err != nil {
		// A wrapped command's exit status passes through to the caller.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}
