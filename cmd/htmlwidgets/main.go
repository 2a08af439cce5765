package main

import (
	"os"

	"github.com/hafen/htmlwidgets/internal/cli"
)

// Injected at build time, e.g.
// -ldflags "-X main.version=v1.2.3 -X main.commit=abc1234".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersion(version, commit)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
