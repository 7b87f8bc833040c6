// Package main is the entry point for the comfyprov CLI.
//
// comfyprov leases a GPU instance, installs ComfyUI on it together with a
// list of model artifacts, and prints the public URL of the running server.
//
// Commands: init, provision, gpus, script, destroy.
//
// For detailed usage information, run:
//
//	comfyprov --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/comfyprov/cmd/comfyprov/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
