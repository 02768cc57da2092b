package main

import (
	"fmt"

	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/spf13/cobra"
)

var duCmd = &cobra.Command{
	Use:   "du",
	Short: "Show disk usage by category",
	Long: `Show filesystem usage for the home volume and a breakdown of the
scan categories by their current size.`,
	Args: cobra.NoArgs,
	RunE: runDiskUsage,
}

func init() {
	rootCmd.AddCommand(duCmd)
}

func runDiskUsage(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}

	report, err := e.DiskUsage(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(report)
	}

	printHeader("Disk usage")
	fmt.Printf("  Volume %s: %s used of %s (%.1f%%), %s free\n",
		report.Path,
		sizeStyle.Render(types.FormatSize(int64(report.UsedBytes))),
		types.FormatSize(int64(report.TotalBytes)),
		report.UsedPercent,
		types.FormatSize(int64(report.FreeBytes)))
	fmt.Println()

	for _, category := range report.Categories {
		if category.Bytes == 0 {
			continue
		}
		fmt.Printf("  %10s  %s\n", sizeStyle.Render(types.FormatSize(category.Bytes)), category.Category)
	}
	fmt.Println()
	fmt.Printf("  Scanned categories hold %s\n", sizeStyle.Render(types.FormatSize(report.TotalScanned)))
	return nil
}
