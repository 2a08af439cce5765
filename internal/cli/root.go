// Package cli implements the htmlwidgets command-line interface: a live
// widget host (serve) and a static page renderer (render). Logging uses
// charmbracelet/log, with loggers passed through context; --verbose
// switches to debug level.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// SetVersion sets the version information displayed by --version,
// typically injected via ldflags at build time.
func SetVersion(v, c string) {
	version = v
	commit = c
}

// Execute runs the htmlwidgets CLI and returns an error if any command
// fails.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "htmlwidgets",
		Short:        "htmlwidgets embeds and serves live visualization widgets",
		Long:         `htmlwidgets binds named visualization widgets to page elements and drives them through their lifecycle, either into a standalone HTML document or as a live page fed over a websocket.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("htmlwidgets %s\ncommit: %s\n", version, commit))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newRenderCmd())

	return root
}
