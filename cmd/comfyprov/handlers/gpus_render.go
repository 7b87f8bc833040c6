package handlers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/comfyprov/internal/platform/compute"
)

// Colors matching internal/ui/tui/styles.go palette.
var (
	offerColorGreen = lipgloss.Color("#22c55e")
	offerColorBlue  = lipgloss.Color("#3b82f6")
	offerColorDim   = lipgloss.Color("#6b7280")
	offerColorWhite = lipgloss.Color("#f9fafb")
)

var (
	offerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(offerColorWhite)

	offerHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(offerColorBlue)

	offerDimStyle = lipgloss.NewStyle().
			Foreground(offerColorDim)

	offerSelectedStyle = lipgloss.NewStyle().
				Foreground(offerColorGreen)
)

// renderOfferings produces the offerings table. The configured type is
// highlighted.
func renderOfferings(provider, selected string, offerings []compute.Offering) string {
	idWidth := len("ID")
	for _, o := range offerings {
		idWidth = max(idWidth, len(o.ID))
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(offerTitleStyle.Render(fmt.Sprintf("  %s offerings", provider)))
	b.WriteString("\n\n")

	header := fmt.Sprintf("  %-*s  %6s  %10s  %10s", idWidth, "ID", "MEMORY", "COMMUNITY", "SECURE")
	b.WriteString(offerHeaderStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(offerDimStyle.Render("  " + strings.Repeat("─", len(header)-2)))
	b.WriteString("\n")

	for _, o := range offerings {
		row := fmt.Sprintf("  %-*s  %6s  %10s  %10s",
			idWidth, o.ID, formatMemory(o.MemoryGB),
			formatPrice(o.CommunityPrice, o.CommunityCloud),
			formatPrice(o.SecurePrice, o.SecureCloud))
		if o.ID == selected {
			row = offerSelectedStyle.Render(row + "  *")
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(offerDimStyle.Render("  Prices are per hour. * marks the configured type."))
	b.WriteString("\n")
	return b.String()
}

func formatMemory(gb int) string {
	if gb <= 0 {
		return "-"
	}
	return fmt.Sprintf("%dGB", gb)
}

func formatPrice(price float64, available bool) string {
	if !available || price <= 0 {
		return "-"
	}
	return fmt.Sprintf("$%.3f", price)
}
