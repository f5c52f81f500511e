package cli

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"MiniCatalog/internal/catalog"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataPath  string
	ServerURL string
	Format    string // "text" | "json" | "yaml"
}

var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for catalogctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Inspect and edit the item catalog document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataPath, "data", defaultDataPath(), "path to the items JSON document")
	cmd.PersistentFlags().StringVar(&opts.ServerURL, "server", os.Getenv("CATALOG_URL"), "catalog service base URL; overrides --data")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

func (o *RootOptions) backend() backend {
	if o.ServerURL != "" {
		return catalog.NewClient(o.ServerURL)
	}
	return localBackend{store: catalog.NewFileStore(o.DataPath)}
}

func (o *RootOptions) formatter(w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: w}
}

func defaultDataPath() string {
	if p := os.Getenv("DATA_PATH"); p != "" {
		return p
	}
	return "data/items.json"
}
