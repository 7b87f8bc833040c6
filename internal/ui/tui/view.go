package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/comfyprov/internal/provisioning"
	"github.com/imamik/comfyprov/internal/ui/benchmarks"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderPhases(&b, m)

	if len(m.Logs) > 0 {
		renderLogs(&b, m)
	}

	if m.URL != "" {
		renderAccess(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render(m.Title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Aborted:
		status += warningStyle.Render("Interrupted")
	case m.URL != "":
		status += readyStyle.Render("Ready")
	case m.Done:
		status += readyStyle.Render("Finished")
	default:
		status += m.Spinner.View() + " " + dimStyle.Render("Provisioning...")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	pct := int(progress * 100)
	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, pct, eta)
}

func renderPhases(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Phases"))
	b.WriteString("\n")

	for _, phase := range m.Phases {
		var icon string
		var style styleFunc
		switch {
		case phase.Failed:
			icon = crossMark
			style = sf(failedStyle)
		case phase.Done:
			icon = checkMark
			style = sf(readyStyle)
		case phase.Active:
			icon = "[" + m.Spinner.View() + " ]"
			style = sf(activeStyle)
		default:
			icon = pending
			style = sf(dimStyle)
		}

		dur := ""
		switch {
		case phase.Done || phase.Failed:
			dur = formatDuration(phase.EndedAt.Sub(phase.StartedAt))
		case phase.Active:
			dur = formatDuration(m.now().Sub(phase.StartedAt))
		}

		name := phase.Name
		if phase.Key == provisioning.PhaseCreate && m.InstanceID != "" {
			name += " (" + m.InstanceID + ")"
		}
		fmt.Fprintf(b, "    %s %-40s %s\n", style(icon), style(name), dimStyle.Render(dur))
	}
}

func renderLogs(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Output"))
	b.WriteString("\n")

	width := m.Width - 6
	for _, line := range m.Logs {
		if r := []rune(line); width > 0 && len(r) > width {
			line = string(r[:width])
		}
		fmt.Fprintf(b, "    %s\n", dimStyle.Render(line))
	}
}

func renderAccess(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  ComfyUI"))
	b.WriteString("\n")
	fmt.Fprintf(b, "    %s\n", urlStyle.Render(m.URL))
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(m.now().Sub(m.StartTime))
	parts := []string{fmt.Sprintf("elapsed: %s", elapsed)}
	if m.InstanceID != "" {
		parts = append(parts, fmt.Sprintf("instance: %s", m.InstanceID))
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s  |  q: quit (instance keeps running)", strings.Join(parts, "  |  "))))
	b.WriteString("\n")
}

func calculateProgress(m Model) float64 {
	if m.URL != "" {
		return 1.0
	}

	var progress float64
	for _, phase := range m.Phases {
		if phase.Done {
			progress += benchmarks.Weight(phase.Key)
		}
	}
	return min(progress, 1.0)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
