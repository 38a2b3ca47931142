package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/hermes-playout/internal/db"
	"github.com/stwalsh4118/hermes-playout/internal/events"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"github.com/stwalsh4118/hermes-playout/internal/playout"
	"github.com/stwalsh4118/hermes-playout/internal/telemetry"
)

var (
	buildMode    string
	buildHours   float64
	buildStart   string
	nowUpcoming  int
	nowTimestamp string
)

var buildCmd = &cobra.Command{
	Use:   "build <channel>",
	Short: "Build a channel's timeline",
	Long: `Build a channel's timeline once and persist it.

The channel is given by ID or name. Modes:
  continue  extend the timeline from where it ends (default)
  refresh   keep items starting before --start and regenerate the rest
  reset     discard the timeline and anchors and start over

Examples:
  hermes build "Classic TV" --hours 24
  hermes build "Classic TV" --mode refresh --start 2024-03-04T18:00:00Z
`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var nowCmd = &cobra.Command{
	Use:   "now <channel>",
	Short: "Show what a channel is airing and what follows",
	Args:  cobra.ExactArgs(1),
	RunE:  runNow,
}

func init() {
	buildCmd.Flags().StringVar(&buildMode, "mode", string(playout.BuildModeContinue), "Build mode: continue, refresh or reset")
	buildCmd.Flags().Float64Var(&buildHours, "hours", 0, "Window length in hours (default: playout lookahead)")
	buildCmd.Flags().StringVar(&buildStart, "start", "", "Window start as RFC 3339 (default: now)")
	nowCmd.Flags().IntVarP(&nowUpcoming, "upcoming", "n", 5, "Number of upcoming items to list")
	nowCmd.Flags().StringVar(&nowTimestamp, "at", "", "Instant to inspect as RFC 3339 (default: now)")
	rootCmd.AddCommand(buildCmd, nowCmd)
}

func parseInstant(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	mode, err := playout.ParseBuildMode(buildMode)
	if err != nil {
		return err
	}
	start, err := parseInstant(buildStart)
	if err != nil {
		return err
	}
	window := cfg.Playout.Lookahead
	if buildHours < 0 {
		return fmt.Errorf("hours must be positive")
	}
	if buildHours > 0 {
		window = time.Duration(buildHours * float64(time.Hour))
	}

	database, err := openDatabase()
	if err != nil {
		return err
	}
	publisher, err := newPublisher()
	if err != nil {
		closeAll(database, nil)
		return fmt.Errorf("failed to connect event publisher: %w", err)
	}
	defer closeAll(database, publisher)

	repos := db.NewRepositories(database)
	ch, err := resolveChannel(cmd.Context(), repos, args[0])
	if err != nil {
		return err
	}

	service := newService(repos, telemetry.NewMetrics(), publisher)
	result, err := service.Build(cmd.Context(), ch.ID, mode, start, start.Add(window))
	if err != nil {
		if result != nil {
			for _, w := range result.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s build added %d, removed %d\n", ch.Name, result.Mode, len(result.Items), len(result.ItemsToRemove))
	if end, ok := result.State.TimelineEnd(); ok {
		fmt.Fprintf(out, "timeline ends %s\n", end.In(ch.Location()).Format(time.RFC3339))
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

func runNow(cmd *cobra.Command, args []string) error {
	at, err := parseInstant(nowTimestamp)
	if err != nil {
		return err
	}

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeAll(database, nil)

	repos := db.NewRepositories(database)
	ch, err := resolveChannel(cmd.Context(), repos, args[0])
	if err != nil {
		return err
	}

	service := newService(repos, nil, events.Noop{})
	current, err := service.Current(cmd.Context(), ch.ID, at)
	if err != nil {
		return err
	}
	upcoming, err := service.Upcoming(cmd.Context(), ch.ID, nowUpcoming, at)
	if err != nil {
		return err
	}

	titles, err := mediaTitles(cmd, repos, append([]*models.PlayoutItem{current}, upcoming...))
	if err != nil {
		return err
	}

	loc := ch.Location()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%d %s\t%s\n", ch.Number, ch.Name, at.In(loc).Format(time.RFC3339))
	if current == nil {
		fmt.Fprintln(w, "NOW\t(dead air)")
	} else {
		fmt.Fprintf(w, "NOW\t%s-%s\t%s\n", current.Start.In(loc).Format("15:04"), current.Finish.In(loc).Format("15:04"), titles[current.ID])
	}
	for _, item := range upcoming {
		fmt.Fprintf(w, "NEXT\t%s-%s\t%s\n", item.Start.In(loc).Format("15:04"), item.Finish.In(loc).Format("15:04"), titles[item.ID])
	}
	return w.Flush()
}

// mediaTitles maps item IDs to display titles; nil items are skipped
func mediaTitles(cmd *cobra.Command, repos *db.Repositories, items []*models.PlayoutItem) (map[uuid.UUID]string, error) {
	var ids []uuid.UUID
	for _, item := range items {
		if item != nil {
			ids = append(ids, item.MediaID)
		}
	}
	found, err := repos.Media.GetByIDs(cmd.Context(), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load media: %w", err)
	}

	titles := make(map[uuid.UUID]string, len(ids))
	for _, item := range items {
		if item == nil {
			continue
		}
		title := item.MediaID.String()
		if item.CustomTitle != nil {
			title = *item.CustomTitle
		} else if m := found[item.MediaID]; m != nil {
			title = m.Title
		}
		if item.IsFiller() {
			title += " (filler)"
		}
		titles[item.ID] = title
	}
	return titles, nil
}
