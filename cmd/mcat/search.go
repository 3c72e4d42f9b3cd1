package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search songs, albums, artists and playlists by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("limit", 20, "Maximum results per kind")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")

	return withStore(func(db *store.Store, _ *report.EventLogger) error {
		res, err := db.Search(query, limit)
		if err != nil {
			return err
		}
		counts, err := db.SearchCounts(query)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		defer w.Flush()

		section := func(title string, shown, total int) {
			if total > 0 {
				fmt.Fprintf(w, "\n%s (%d of %d)\n", title, shown, total)
			}
		}

		section("Songs", len(res.Songs), counts.Songs)
		for _, s := range res.Songs {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", s.ID, s.Title, util.FormatDuration(int64(s.Duration)))
		}
		section("Albums", len(res.Albums), counts.Albums)
		for _, a := range res.Albums {
			fmt.Fprintf(w, "  %s\t%s\n", a.ID, a.Title)
		}
		section("Artists", len(res.Artists), counts.Artists)
		for _, a := range res.Artists {
			fmt.Fprintf(w, "  %s\t%s\n", a.ID, a.Name)
		}
		section("Playlists", len(res.Playlists), counts.Playlists)
		for _, p := range res.Playlists {
			fmt.Fprintf(w, "  %s\t%s\n", p.ID, p.Name)
		}

		if counts.Songs+counts.Albums+counts.Artists+counts.Playlists == 0 {
			util.InfoLog("No matches for %q", query)
		}
		return nil
	})
}
