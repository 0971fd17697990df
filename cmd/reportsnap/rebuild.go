package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitegrid/reportsnap/internal/snapshot"
)

var (
	rebuildAll   bool
	rebuildStart string
	rebuildEnd   string
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [project-id...]",
	Short: "Rebuild snapshots directly against the store",
	RunE:  runRebuild,
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildAll, "all", false, "rebuild every known project")
	rebuildCmd.Flags().StringVar(&rebuildStart, "start", "", "range start (RFC 3339, single project only)")
	rebuildCmd.Flags().StringVar(&rebuildEnd, "end", "", "range end (RFC 3339, single project only)")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	app, err := newApp(os.Stderr, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()

	// A ranged build targets exactly one project.
	if rebuildStart != "" || rebuildEnd != "" {
		if rebuildAll || len(args) != 1 {
			return errors.New("--start/--end require exactly one project id")
		}
		dr, err := parseRangeFlags(rebuildStart, rebuildEnd)
		if err != nil {
			return err
		}
		snap, err := app.builder.Build(ctx, args[0], dr)
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("project %q not found", args[0])
		}
		fmt.Printf("snapshot %s persisted (%d bytes)\n", snapshot.Key(args[0], dr), snap.Metadata.TotalDataSize)
		return nil
	}

	if rebuildAll == (len(args) > 0) {
		return errors.New("pass project ids or --all, not both")
	}

	var result any
	if rebuildAll {
		result, err = app.rebuilder.RebuildAll(ctx)
	} else {
		result, err = app.rebuilder.Rebuild(ctx, args)
	}
	if err != nil {
		return err
	}

	return printJSON(result)
}

func parseRangeFlags(start, end string) (*snapshot.DateRange, error) {
	if start == "" || end == "" {
		return nil, errors.New("--start and --end must be supplied together")
	}
	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, fmt.Errorf("invalid --start: %w", err)
	}
	endTime, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return nil, fmt.Errorf("invalid --end: %w", err)
	}
	if !startTime.Before(endTime) {
		return nil, errors.New("--start must precede --end")
	}
	return &snapshot.DateRange{Start: startTime, End: endTime}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
