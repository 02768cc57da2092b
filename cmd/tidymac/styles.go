package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle       = lipgloss.NewStyle().Faint(true)
	safeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	cautionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dangerousStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	sizeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// styleSafety renders a safety label in its conventional color.
func styleSafety(label types.SafetyLabel) string {
	switch label {
	case types.Safe:
		return safeStyle.Render(label.String())
	case types.Caution:
		return cautionStyle.Render(label.String())
	default:
		return dangerousStyle.Render(label.String())
	}
}

// printJSON writes a value as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printHeader writes a styled section header.
func printHeader(title string) {
	fmt.Println()
	fmt.Println(headerStyle.Render(title))
	fmt.Println()
}
