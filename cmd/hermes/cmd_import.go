package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/hermes-playout/internal/db"
	"github.com/stwalsh4118/hermes-playout/internal/lineup"
	"github.com/stwalsh4118/hermes-playout/internal/media"
)

var (
	importNoProbe bool
	importFFprobe string
)

var importCmd = &cobra.Command{
	Use:   "import <lineup.yaml>",
	Short: "Import media, collections, filler and channels from a lineup file",
	Long: `Import a YAML lineup into the database.

Media are matched by path, collections by kind and name, filler presets and channels
by name, so importing the same file again updates rows in place. Media that declare no
duration are probed with ffprobe unless --no-probe is given.

Examples:
  hermes import lineup.yaml
  hermes import lineup.yaml --ffprobe /usr/local/bin/ffprobe
`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importNoProbe, "no-probe", false, "Fail instead of probing media without a duration")
	importCmd.Flags().StringVar(&importFFprobe, "ffprobe", "ffprobe", "Path to the ffprobe binary")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	l, err := lineup.Load(args[0])
	if err != nil {
		return err
	}
	if err := l.Validate(); err != nil {
		return err
	}

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeAll(database, nil)

	opts := lineup.ImportOptions{
		LibraryPath: cfg.Media.LibraryPath,
		Formats:     cfg.Media.SupportedFormats,
		TimeZone:    cfg.Playout.TimeZone,
	}
	if !importNoProbe {
		opts.Prober = media.FFprobe{Binary: importFFprobe}
	}

	summary, err := lineup.NewImporter(db.NewRepositories(database), opts).Import(cmd.Context(), l)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
