package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List cleanup profiles",
	Long: `List the built-in profiles plus any custom profiles from the
profiles directory. Custom profiles are TOML files merged over the
built-in of the same name.`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(_ *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}

	profiles, err := e.ListProfiles()
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(profiles)
	}

	printHeader("Profiles")
	for _, p := range profiles {
		fmt.Printf("  %-12s %-8s %s\n", p.Name, dimStyle.Render(string(p.Aggression)), p.Description)
	}
	return nil
}
