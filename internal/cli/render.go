package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hafen/htmlwidgets/page"
	"github.com/hafen/htmlwidgets/sparkline"
	"github.com/hafen/htmlwidgets/widget"
)

func newRenderCmd() *cobra.Command {
	var (
		output    string
		title     string
		manifests []string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a standalone widget page to HTML",
		Long:  `Render writes a static HTML document embedding the demo sparkline widget: dependency tags, container, serialized payload, and the client bootstrap. Static pages are rendered entirely by client-side bindings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			assets, err := loadManifests(manifests)
			if err != nil {
				return err
			}

			reg := widget.NewRegistry()
			if err := sparkline.Register(reg); err != nil {
				return err
			}

			pg := &page.Page{
				Title:  title,
				Assets: assets,
				Embeds: []page.Embed{{
					Widget:  sparkline.Name,
					Payload: sparkline.NewPayload([]float64{3, 1, 4, 1, 5, 9, 2, 6}, "pi digits"),
				}},
			}

			out := os.Stdout
			if output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			if err := pg.Render(out, reg); err != nil {
				return err
			}
			if output != "-" {
				logger.Info("rendered page", "output", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, or - for stdout")
	cmd.Flags().StringVar(&title, "title", "htmlwidgets", "page title")
	cmd.Flags().StringSliceVar(&manifests, "manifest", nil, "dependency manifest files to include")

	return cmd
}
