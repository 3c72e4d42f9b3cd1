package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls songs|albums|artists|playlists",
	Short: "List catalog entries",
	Long: `List songs, albums, artists or playlists.

--filter matches case-insensitively as a substring. For songs it matches
the title, the artist name and the album title.`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().StringP("filter", "f", "", "Substring filter")
	lsCmd.Flags().Bool("favorites", false, "Only favorites")
	lsCmd.Flags().Int("limit", 50, "Page size (0 = everything)")
	lsCmd.Flags().Int("offset", 0, "Rows to skip")
	lsCmd.Flags().String("sort", "title", "Song order: title, artist, album, duration or date_added")
	lsCmd.Flags().Bool("desc", false, "Reverse song order")
}

func runLs(cmd *cobra.Command, args []string) error {
	kind, err := store.ParseKind(args[0])
	if err != nil {
		return err
	}

	filter, _ := cmd.Flags().GetString("filter")
	favorites, _ := cmd.Flags().GetBool("favorites")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	sortKey, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")

	return withStore(func(db *store.Store, _ *report.EventLogger) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		defer w.Flush()

		switch kind {
		case store.KindSong:
			sort, err := store.ParseSongSort(sortKey)
			if err != nil {
				return err
			}
			q := store.SongQuery{
				Filter:        filter,
				FavoritesOnly: favorites,
				Sort:          sort,
				Desc:          desc,
				Limit:         limit,
				Offset:        offset,
			}
			songs, err := db.ListSongs(q)
			if err != nil {
				return err
			}
			total, err := db.CountSongs(q)
			if err != nil {
				return err
			}
			printSongs(w, songs)
			util.InfoLog("%s of %s songs", humanize.Comma(int64(len(songs))), humanize.Comma(int64(total)))

		case store.KindAlbum:
			albums, err := db.ListAlbums(store.ListQuery{Filter: filter, FavoritesOnly: favorites, Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tTITLE\tFLAGS")
			for _, a := range albums {
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Title, flags(a.Favorite, a.Pinned))
			}

		case store.KindArtist:
			artists, err := db.ListArtists(store.ListQuery{Filter: filter, FavoritesOnly: favorites, Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME\tFLAGS")
			for _, a := range artists {
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Name, flags(a.Favorite, a.Pinned))
			}

		case store.KindPlaylist:
			playlists, err := db.ListPlaylists()
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME\tTRACKS\tFLAGS")
			for _, p := range playlists {
				if filter != "" && !strings.Contains(store.Fold(p.Name), store.Fold(filter)) {
					continue
				}
				n, err := db.TrackCount(p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.Name, n, flags(false, p.Pinned))
			}
		}
		return nil
	})
}

func printSongs(w io.Writer, songs []*store.Song) {
	fmt.Fprintln(w, "ID\tTITLE\tLENGTH\tFLAGS")
	for _, s := range songs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Title, util.FormatDuration(int64(s.Duration)), flags(s.Favorite, s.Pinned))
	}
}

// flags renders favorite and pinned markers
func flags(favorite, pinned bool) string {
	var b strings.Builder
	if favorite {
		b.WriteString("★")
	}
	if pinned {
		b.WriteString("📌")
	}
	return b.String()
}
