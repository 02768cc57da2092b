package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jamesainslie/tidymac/pkg/tidymac/engine"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/spf13/cobra"
)

var (
	cleanMode  string
	cleanItems []string
	cleanYes   bool
	cleanForce bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove reclaimable files",
	Long: `Clean the items found by a profile scan.

Modes:
  preview   show what would be removed, touch nothing (default)
  soft      move files to the staging area; undo within the retention window
  hard      remove permanently; no undo`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanMode, "mode", "m", "preview", "clean mode: preview, soft, or hard")
	cleanCmd.Flags().StringSliceVarP(&cleanItems, "item", "i", nil, "restrict to named inventory items (repeatable)")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "skip the confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "remove files even if they changed since the scan")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	mode, err := types.ParseMode(cleanMode)
	if err != nil {
		return err
	}

	e, err := newEngine()
	if err != nil {
		return err
	}

	if mode == types.ModeHard && !cleanYes && !confirm("Permanently delete files with no undo?") {
		fmt.Println("Aborted.")
		return nil
	}

	report, err := e.Clean(cmd.Context(), engine.CleanRequest{
		Profile: profileFlag(),
		Mode:    mode,
		Items:   cleanItems,
		Force:   cleanForce,
	})
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(report)
	}

	switch mode {
	case types.ModePreview:
		fmt.Printf("Would remove %d files, freeing %s.\n",
			report.FilesRemoved, sizeStyle.Render(types.FormatSize(report.BytesFreed)))
	case types.ModeSoft:
		fmt.Printf("Staged %d files (%s). Undo with: tidymac sessions restore %s\n",
			report.FilesRemoved, sizeStyle.Render(types.FormatSize(report.BytesFreed)), report.SessionID)
	case types.ModeHard:
		fmt.Printf("Removed %d files, freed %s.\n",
			report.FilesRemoved, sizeStyle.Render(types.FormatSize(report.BytesFreed)))
	}

	for _, msg := range report.Errors {
		fmt.Println(dimStyle.Render("  warning: " + msg))
	}
	if len(report.Errors) > 0 {
		return fmt.Errorf("%w: %d files could not be processed", engine.ErrPartial, len(report.Errors))
	}
	return nil
}

// confirm prompts for a yes/no answer on stdin.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
