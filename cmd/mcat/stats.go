package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts and sizes",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	return withStore(func(db *store.Store, _ *report.EventLogger) error {
		st, err := db.Stats()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		defer w.Flush()

		count := func(label string, n int) {
			fmt.Fprintf(w, "%s\t%s\n", label, humanize.Comma(int64(n)))
		}
		count("Songs", st.Songs)
		count("Albums", st.Albums)
		count("Artists", st.Artists)
		count("Playlists", st.Playlists)
		count("Playlist tracks", st.Tracks)
		fmt.Fprintf(w, "Images\t%s (%s)\n", humanize.Comma(int64(st.Images)), humanize.Bytes(uint64(st.ImageBytes)))
		count("Play contexts", st.EventContexts)
		count("Play events", st.Events)
		fmt.Fprintf(w, "Audio\t%s\n", humanize.Bytes(uint64(st.FileBytes)))
		fmt.Fprintf(w, "Total duration\t%s\n", util.FormatDuration(st.Duration))
		return nil
	})
}
