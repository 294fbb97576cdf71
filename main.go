package main

import (
	"os"

	"github.com/clippy-ai/clippy-ctl/cmd"
	"github.com/clippy-ai/clippy-ctl/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
