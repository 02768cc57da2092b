package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for reclaimable space",
	Long: `Scan the targets selected by the active profile and print a
classified inventory with safety labels.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}

	inv, err := e.Scan(cmd.Context(), profileFlag())
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(inv)
	}

	printHeader(fmt.Sprintf("Scan results (%s profile)", inv.Profile))
	if len(inv.Items) == 0 {
		fmt.Println(dimStyle.Render("Nothing to reclaim."))
		return nil
	}

	for _, item := range inv.Items {
		fmt.Printf("  %-9s %10s  %s %s\n",
			styleSafety(item.Safety),
			sizeStyle.Render(item.BytesFormatted()),
			item.Name,
			dimStyle.Render(fmt.Sprintf("(%s files)", humanize.Comma(int64(item.FileCount)))))
	}

	fmt.Println()
	fmt.Printf("  Total reclaimable: %s across %s files in %s\n",
		sizeStyle.Render(types.FormatSize(inv.TotalBytes)),
		humanize.Comma(int64(inv.TotalFiles)),
		types.FormatDuration(inv.Elapsed))

	for _, scanErr := range inv.Errors {
		fmt.Println(dimStyle.Render("  warning: " + scanErr.Error))
	}
	return nil
}
