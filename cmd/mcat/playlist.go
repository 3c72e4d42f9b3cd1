package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Create playlists and edit their tracks",
	Long: `Create playlists and add, remove or reorder their tracks.

Positions start at 0. A position past the end (or -1) appends; every edit
keeps the playlist numbered 0..N-1 with no gaps.`,
}

var playlistCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistCreate,
}

var playlistAddCmd = &cobra.Command{
	Use:   "add <playlist-id> <song-id> [position]",
	Short: "Insert a song, shifting later tracks down",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runPlaylistAdd,
}

var playlistRemoveCmd = &cobra.Command{
	Use:   "remove <playlist-id> <song-id>",
	Short: "Remove a song, closing the gap it leaves",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlaylistRemove,
}

var playlistMoveCmd = &cobra.Command{
	Use:   "move <playlist-id> <song-id> <position>",
	Short: "Move a song to a new position",
	Args:  cobra.ExactArgs(3),
	RunE:  runPlaylistMove,
}

var playlistShowCmd = &cobra.Command{
	Use:   "show <playlist-id>",
	Short: "Show a playlist's tracks in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistShow,
}

func init() {
	rootCmd.AddCommand(playlistCmd)
	playlistCmd.AddCommand(playlistCreateCmd, playlistAddCmd, playlistRemoveCmd, playlistMoveCmd, playlistShowCmd)

	playlistCreateCmd.Flags().String("description", "", "Playlist description")
	playlistCreateCmd.Flags().String("image", "", "Cover image file")
}

func parsePosition(s string) (int, error) {
	pos, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return pos, nil
}

func runPlaylistCreate(cmd *cobra.Command, args []string) error {
	description, _ := cmd.Flags().GetString("description")
	imagePath, _ := cmd.Flags().GetString("image")

	return withStore(func(db *store.Store, audit *report.EventLogger) error {
		p := &store.Playlist{Name: args[0], Description: description}

		if imagePath != "" {
			data, err := util.RetryableReadFile(afero.NewOsFs(), imagePath, cfg.RetryConfig())
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			if p.ImageID, err = db.PutImageDedup(data); err != nil {
				return err
			}
		}

		if err := db.CreatePlaylist(p); err != nil {
			return err
		}
		audit.LogPlaylist("create", p.ID, "", 0)
		util.SuccessLog("Created playlist %q", p.Name)
		fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		return nil
	})
}

func runPlaylistAdd(cmd *cobra.Command, args []string) error {
	position := -1
	if len(args) == 3 {
		var err error
		if position, err = parsePosition(args[2]); err != nil {
			return err
		}
	}

	return withStore(func(db *store.Store, audit *report.EventLogger) error {
		track, err := db.AddTrack(args[0], args[1], position)
		if err != nil {
			return err
		}
		audit.LogPlaylist("add", args[0], args[1], track.Position)
		util.SuccessLog("Added at position %d", track.Position)
		return nil
	})
}

func runPlaylistRemove(cmd *cobra.Command, args []string) error {
	return withStore(func(db *store.Store, audit *report.EventLogger) error {
		if err := db.RemoveTrack(args[0], args[1]); err != nil {
			return err
		}
		audit.LogPlaylist("remove", args[0], args[1], -1)
		util.SuccessLog("Removed %s", args[1])
		return nil
	})
}

func runPlaylistMove(cmd *cobra.Command, args []string) error {
	position, err := parsePosition(args[2])
	if err != nil {
		return err
	}

	return withStore(func(db *store.Store, audit *report.EventLogger) error {
		if err := db.MoveTrack(args[0], args[1], position); err != nil {
			return err
		}
		audit.LogPlaylist("move", args[0], args[1], position)
		util.SuccessLog("Moved %s", args[1])
		return nil
	})
}

func runPlaylistShow(cmd *cobra.Command, args []string) error {
	return withStore(func(db *store.Store, _ *report.EventLogger) error {
		p, err := db.GetPlaylist(args[0])
		if err != nil {
			return err
		}
		tracks, err := db.PlaylistTracks(p.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(out, "%s\n", p.Description)
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()

		var total int64
		for _, t := range tracks {
			fmt.Fprintf(w, "%3d\t%s\t%s\t%s\n", t.Position, t.Song.Title, util.FormatDuration(int64(t.Song.Duration)), t.SongID)
			total += int64(t.Song.Duration)
		}
		fmt.Fprintf(w, "\n%d tracks, %s\n", len(tracks), util.FormatDuration(total))
		return nil
	})
}
