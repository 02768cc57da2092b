package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/tidymac/pkg/tidymac/engine"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/spf13/cobra"
)

var (
	purgeAll   bool
	purgeForce bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage cleanup sessions",
	Long: `List past cleanup sessions, restore a soft session, or purge
expired staging areas.`,
	RunE: runSessionsList,
}

var sessionsRestoreCmd = &cobra.Command{
	Use:   "restore <session-id>",
	Short: "Undo a soft cleanup session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsRestore,
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge [session-id]",
	Short: "Remove expired sessions and their staged files",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsPurge,
}

func init() {
	sessionsPurgeCmd.Flags().BoolVar(&purgeAll, "all", false, "purge every session, expired or not")
	sessionsPurgeCmd.Flags().BoolVar(&purgeForce, "force", false, "purge a non-expired session by id")

	sessionsCmd.AddCommand(sessionsRestoreCmd)
	sessionsCmd.AddCommand(sessionsPurgeCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(_ *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}

	summaries, err := e.ListSessions()
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No sessions.")
		return nil
	}

	printHeader("Cleanup sessions")
	for _, s := range summaries {
		state := dimStyle.Render(fmt.Sprintf("expires %s", humanize.Time(s.ExpiresAt)))
		switch {
		case s.Restored:
			state = safeStyle.Render("restored")
		case s.Expired:
			state = dimStyle.Render("expired")
		case s.Mode == types.ModeHard:
			state = dangerousStyle.Render("permanent")
		}
		fmt.Printf("  %s  %-9s %10s  %6d files  %s\n",
			s.ID, s.Mode, types.FormatSize(s.TotalBytes), s.TotalFiles, state)
	}

	orphans, err := e.Orphans()
	if err == nil {
		for _, orphan := range orphans {
			fmt.Println(dimStyle.Render("  warning: orphaned staging directory " + orphan))
		}
	}
	return nil
}

func runSessionsRestore(_ *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}

	report, err := e.Restore(args[0])
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(report)
	}

	fmt.Printf("Restored %d files (%s).\n",
		report.RestoredCount, sizeStyle.Render(types.FormatSize(report.RestoredBytes)))
	for _, msg := range report.Errors {
		fmt.Println(dimStyle.Render("  warning: " + msg))
	}
	if len(report.Errors) > 0 {
		return fmt.Errorf("%w: %d files could not be restored", engine.ErrPartial, len(report.Errors))
	}
	return nil
}

func runSessionsPurge(_ *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}

	req := engine.PurgeRequest{All: purgeAll, Force: purgeForce}
	if len(args) == 1 {
		req.SessionID = args[0]
	}

	report, err := e.Purge(req)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(report)
	}

	fmt.Printf("Purged %d sessions, freed %s.\n",
		report.SessionsPurged, sizeStyle.Render(types.FormatSize(report.BytesFreed)))
	return nil
}
