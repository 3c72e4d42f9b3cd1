package main

import (
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var favCmd = &cobra.Command{
	Use:   "fav song|album|artist <id>",
	Short: "Mark an entry as favorite",
	Args:  cobra.ExactArgs(2),
	RunE:  runToggle("favorite"),
}

var pinCmd = &cobra.Command{
	Use:   "pin song|album|artist|playlist <id>",
	Short: "Pin an entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runToggle("pinned"),
}

func init() {
	rootCmd.AddCommand(favCmd, pinCmd)

	favCmd.Flags().Bool("off", false, "Clear the flag instead")
	pinCmd.Flags().Bool("off", false, "Clear the flag instead")
}

func runToggle(flag string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		kind, err := store.ParseKind(args[0])
		if err != nil {
			return err
		}
		off, _ := cmd.Flags().GetBool("off")

		return withStore(func(db *store.Store, _ *report.EventLogger) error {
			if flag == "favorite" {
				err = db.SetFavorite(kind, args[1], !off)
			} else {
				err = db.SetPinned(kind, args[1], !off)
			}
			if err != nil {
				return err
			}

			state := "set"
			if off {
				state = "cleared"
			}
			util.SuccessLog("%s %s: %s %s", kind, args[1], flag, state)
			return nil
		})
	}
}
