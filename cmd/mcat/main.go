package main

import (
	"fmt"
	"os"

	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "mcat",
		Short: "Music catalog - a local song, album, artist and playlist store",
		Long: `mcat keeps a catalog of songs, albums, artists, playlists and artwork in
a single SQLite file. Deleting a song cleans up albums, artists and images
nobody references anymore, and playlists never keep gaps in their order.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return loadConfig() },
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	util.SetConfigDefaults(viper.GetViper())

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/mcat.yaml)")
	rootCmd.PersistentFlags().String("db", "mcat.db", "catalog database file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")
	rootCmd.PersistentFlags().String("log-format", util.FormatAuto, "log format: auto, console or json")
	rootCmd.PersistentFlags().Bool("network-db", false, "tune SQLite for a database on a network filesystem")
	rootCmd.PersistentFlags().Bool("no-audit", false, "do not write the JSONL audit log")
	rootCmd.PersistentFlags().String("audit-dir", "artifacts", "directory for audit logs")
	rootCmd.PersistentFlags().IntP("concurrency", "j", 0, "import workers (default: number of CPUs)")

	// Bind flags to viper
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("network_db", rootCmd.PersistentFlags().Lookup("network-db"))
	viper.BindPFlag("no_audit", rootCmd.PersistentFlags().Lookup("no-audit"))
	viper.BindPFlag("audit_dir", rootCmd.PersistentFlags().Lookup("audit-dir"))
	viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("mcat")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("MCAT")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
