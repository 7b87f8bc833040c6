// Package tui provides a Bubble Tea-based terminal UI for provisioning runs.
package tui

// LineMsg carries one line of provisioning output.
type LineMsg struct {
	Text string
}

// DoneMsg signals that the output sequence is exhausted.
type DoneMsg struct{}
