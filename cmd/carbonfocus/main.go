// Command carbonfocus is the carbon accounting platform CLI and API server.
package main

import (
	"fmt"
	"os"

	"github.com/opencarbon/carbonfocus/internal/cli"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	root := cli.NewRootCmd(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
