package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <PLAY|STOP|PAUSE|RESUME> <song-id>",
	Short: "Record a playback event",
	Long: `Record a playback event for a song.

Without --context a new playback context is opened (optionally inside a
playlist) and its id is printed; pass it back with --context to record
the PAUSE, RESUME and STOP events of the same playback.`,
	Args: cobra.ExactArgs(2),
	RunE: runPlay,
}

var historyCmd = &cobra.Command{
	Use:   "history <song-id>",
	Short: "Show the playback history of a song",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(playCmd, historyCmd)

	playCmd.Flags().String("context", "", "Existing playback context id")
	playCmd.Flags().String("playlist", "", "Playlist the song is played from")
}

func runPlay(cmd *cobra.Command, args []string) error {
	eventType, err := store.ParseEventType(strings.ToUpper(args[0]))
	if err != nil {
		return err
	}
	songID := args[1]
	contextID, _ := cmd.Flags().GetString("context")
	playlistID, _ := cmd.Flags().GetString("playlist")

	return withStore(func(db *store.Store, _ *report.EventLogger) error {
		if contextID == "" {
			ec, err := db.CreateEventContext(songID, playlistID)
			if err != nil {
				return err
			}
			contextID = ec.ID
		} else {
			ec, err := db.GetEventContext(contextID)
			if err != nil {
				return err
			}
			if ec.SongID != songID {
				return fmt.Errorf("context %s belongs to song %s", contextID, ec.SongID)
			}
		}

		if _, err := db.RecordEvent(eventType, contextID, time.Now()); err != nil {
			return err
		}
		util.DebugLog("Recorded %s for %s", eventType, songID)
		fmt.Fprintln(cmd.OutOrStdout(), contextID)
		return nil
	})
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withStore(func(db *store.Store, _ *report.EventLogger) error {
		song, err := db.GetSong(args[0])
		if err != nil {
			return err
		}
		contexts, err := db.EventContextsBySong(song.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d playbacks\n", song.Title, len(contexts))

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()

		for _, ec := range contexts {
			events, err := db.ContextEvents(ec.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%s\t%s\n", ec.ID, ec.PlaylistID)
			for _, e := range events {
				fmt.Fprintf(w, "  %s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Type)
			}
		}
		return nil
	})
}
