package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

var artCmd = &cobra.Command{
	Use:   "art song|album|artist|playlist|image <id>",
	Short: "Export the artwork of an entry",
	Long: `Write the artwork of a song, album, artist or playlist (or an image by
its own id) to a file. The extension follows the detected image format.`,
	Args: cobra.ExactArgs(2),
	RunE: runArt,
}

func init() {
	rootCmd.AddCommand(artCmd)

	artCmd.Flags().StringP("out", "o", ".", "Output directory")
}

func runArt(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")

	return withStore(func(db *store.Store, _ *report.EventLogger) error {
		imageID, err := resolveImageID(db, args[0], args[1])
		if err != nil {
			return err
		}
		if imageID == "" {
			return fmt.Errorf("%s %s has no artwork", args[0], args[1])
		}

		img, err := db.GetImage(imageID)
		if err != nil {
			return err
		}

		path, err := writeArtwork(img, outDir)
		if err != nil {
			return err
		}
		util.SuccessLog("Wrote %s (%s)", path, humanize.Bytes(uint64(len(img.Data))))
		return nil
	})
}

// resolveImageID returns the image an entry points to
func resolveImageID(db *store.Store, kind, id string) (string, error) {
	if kind == "image" {
		return id, nil
	}

	k, err := store.ParseKind(kind)
	if err != nil {
		return "", err
	}
	switch k {
	case store.KindSong:
		s, err := db.GetSong(id)
		if err != nil {
			return "", err
		}
		return s.ImageID, nil
	case store.KindAlbum:
		a, err := db.GetAlbum(id)
		if err != nil {
			return "", err
		}
		return a.ImageID, nil
	case store.KindArtist:
		a, err := db.GetArtist(id)
		if err != nil {
			return "", err
		}
		return a.ImageID, nil
	default:
		p, err := db.GetPlaylist(id)
		if err != nil {
			return "", err
		}
		return p.ImageID, nil
	}
}

// writeArtwork stores img in dir as <id><ext>, the extension taken from
// the content
func writeArtwork(img *store.Image, dir string) (string, error) {
	mtype := mimetype.Detect(img.Data)
	util.DebugLog("Image %s is %s", img.ID, mtype.String())

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, img.ID+mtype.Extension())
	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artwork: %w", err)
	}
	return path, nil
}
