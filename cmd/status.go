// file: cmd/status.go
// version: 1.0.0
// guid: 4a4c51e3-bc6e-4a07-abbf-6dd0b85e0d18

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jdfalk/album-enricher/internal/enricher"
	"github.com/jdfalk/album-enricher/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// statusCmd lists stored provider state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored refresh state of every album",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		states, err := a.store.ListProviderStates(enricher.ProviderName)
		if err != nil {
			return fmt.Errorf("failed to list provider states: %w", err)
		}
		return writeStates(cmd.OutOrStdout(), output, states)
	},
}

func init() {
	statusCmd.Flags().StringP("output", "o", "table", "output format: table, yaml or json")
}

func writeStates(w io.Writer, format string, states []models.ProviderState) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(states); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ALBUM\tSTATUS\tMATCH\tREFRESHED\tFINGERPRINT")
		for _, s := range states {
			match := "-"
			if s.MatchedAlbum != "" {
				match = s.MatchedArtist + " / " + s.MatchedAlbum
			}
			refreshed := "-"
			if !s.LastRefreshed.IsZero() {
				refreshed = s.LastRefreshed.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ItemID, s.LastStatus, match, refreshed, s.Fingerprint)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
