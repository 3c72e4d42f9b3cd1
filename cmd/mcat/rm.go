package main

import (
	"fmt"
	"time"

	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm song|album|artist|playlist <id>",
	Short: "Delete an entry and everything left unreferenced by it",
	Long: `Delete a song, album, artist or playlist.

Deleting a song also deletes its album when no other song is on it, the
album's artist when that artist has no other albums or songs, and any
artwork nothing references anymore. Deleting an album deletes its songs;
deleting an artist deletes their albums and clears them from other songs.
Playlists that lose tracks are renumbered without gaps.`,
	Args: cobra.ExactArgs(2),
	RunE: runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	kind, err := store.ParseKind(args[0])
	if err != nil {
		return err
	}
	id := args[1]

	return withStore(func(db *store.Store, audit *report.EventLogger) error {
		start := time.Now()
		res, err := deleteEntry(db, kind, id)
		if err != nil {
			audit.LogError(report.EventDelete, string(kind)+":"+id, err)
			return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
		}
		audit.LogDelete(kind, id, res, time.Since(start))

		util.SuccessLog("Deleted %s %s", kind, id)
		printCascade(res)
		return nil
	})
}

func deleteEntry(db *store.Store, kind store.Kind, id string) (*store.CascadeResult, error) {
	switch kind {
	case store.KindSong:
		return db.DeleteSong(id)
	case store.KindAlbum:
		return db.DeleteAlbum(id)
	case store.KindArtist:
		return db.DeleteArtist(id)
	case store.KindPlaylist:
		return db.DeletePlaylist(id)
	}
	return nil, fmt.Errorf("cannot delete %s", kind)
}

// printCascade lists every row a delete chain or sweep removed
func printCascade(res *store.CascadeResult) {
	util.InfoLog("  Removed: %s", res)
	for _, g := range []struct {
		label string
		ids   []string
	}{
		{"song", res.Songs},
		{"album", res.Albums},
		{"artist", res.Artists},
		{"playlist", res.Playlists},
		{"image", res.Images},
	} {
		for _, id := range g.ids {
			util.DebugLog("    %s %s", g.label, id)
		}
	}
	if len(res.Compacted) > 0 {
		util.InfoLog("  Renumbered playlists: %d", len(res.Compacted))
	}
}
