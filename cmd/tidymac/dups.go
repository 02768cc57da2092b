package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/spf13/cobra"
)

var dupsPerceptual bool

var dupsCmd = &cobra.Command{
	Use:   "dups <root>",
	Short: "Find duplicate files",
	Long: `Find byte-identical duplicate files under a directory. With
--images, visually similar images (re-encodes, small edits) are
reported as separate groups.`,
	Args: cobra.ExactArgs(1),
	RunE: runDups,
}

func init() {
	dupsCmd.Flags().BoolVar(&dupsPerceptual, "images", false, "also match visually similar images")
	rootCmd.AddCommand(dupsCmd)
}

func runDups(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}

	result, err := e.FindDuplicates(cmd.Context(), args[0], dupsPerceptual)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(result)
	}

	printHeader(fmt.Sprintf("Duplicates under %s", types.DisplayPath(args[0])))

	var reclaimable int64
	for _, group := range result.Exact {
		reclaimable += group.Reclaimable()
		fmt.Printf("  %s x%d (%s each)\n",
			sizeStyle.Render(types.FormatSize(group.SizeBytes)),
			len(group.Paths), group.Match)
		for _, path := range group.Paths {
			marker := "  "
			if path == group.Keep {
				marker = dimStyle.Render("keep")
			}
			fmt.Printf("    %s %s\n", marker, types.DisplayPath(path))
		}
	}

	for _, group := range result.Similar {
		fmt.Printf("  %s group of %d\n", group.Match, len(group.Paths))
		for _, path := range group.Paths {
			fmt.Printf("      %s\n", types.DisplayPath(path))
		}
	}

	fmt.Println()
	fmt.Printf("  %s files scanned, %d exact groups, %d similar groups, %s reclaimable\n",
		humanize.Comma(int64(result.FilesScanned)),
		len(result.Exact), len(result.Similar),
		sizeStyle.Render(types.FormatSize(reclaimable)))

	for _, scanErr := range result.Errors {
		fmt.Println(dimStyle.Render("  warning: " + scanErr.Error))
	}
	return nil
}
