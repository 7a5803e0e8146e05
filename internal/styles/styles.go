// Package styles renders presence snapshots and iteration diffs for the
// terminal.
package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/npezzotti/mob-vibe/internal/iteration"
	"github.com/npezzotti/mob-vibe/internal/presence"
	"github.com/npezzotti/mob-vibe/internal/types"
)

var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorRed    = lipgloss.Color("#f7768e")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorGray   = lipgloss.Color("#565f89")
)

var (
	HeaderStyle  = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorGray)
	AddedStyle   = lipgloss.NewStyle().Foreground(ColorGreen)
	RemovedStyle = lipgloss.NewStyle().Foreground(ColorRed)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
)

func statusStyle(status string) lipgloss.Style {
	switch presence.Status(status) {
	case presence.Online:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case presence.Away:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	default:
		return MutedStyle
	}
}

// Presence renders a friends snapshot.
func Presence(s types.PresenceSnapshot) string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Friends (%d)", len(s.Friends))))
	b.WriteString("\n")
	if len(s.Friends) == 0 {
		b.WriteString(MutedStyle.Render("  no friends yet"))
		b.WriteString("\n")
	}
	for _, f := range s.Friends {
		fmt.Fprintf(&b, "  %s %s\n", statusStyle(f.Status).Render("●"), f.Name)
		b.WriteString("    " + statusStyle(f.Status).Render(f.Status) + "\n")
	}

	if len(s.PendingReceived) > 0 {
		b.WriteString(HeaderStyle.Render(fmt.Sprintf("Requests (%d)", len(s.PendingReceived))))
		b.WriteString("\n")
		for _, r := range s.PendingReceived {
			if r.Sender != nil {
				fmt.Fprintf(&b, "  #%d from %s\n", r.Id, r.Sender.Name)
			}
		}
	}

	if len(s.PendingSent) > 0 {
		b.WriteString(HeaderStyle.Render(fmt.Sprintf("Sent (%d)", len(s.PendingSent))))
		b.WriteString("\n")
		for _, r := range s.PendingSent {
			if r.Receiver != nil {
				b.WriteString(MutedStyle.Render(fmt.Sprintf("  #%d to %s", r.Id, r.Receiver.Name)))
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

// Entry renders one iteration of a game's history. Diff lines are colored by
// their marker.
func Entry(e iteration.Entry) string {
	var b strings.Builder

	header := fmt.Sprintf("Iteration %d", e.Iteration.Id)
	if e.Iteration.Prompt != "" {
		header += ": " + e.Iteration.Prompt
	}
	b.WriteString(HeaderStyle.Render(header))
	b.WriteString("\n")

	if !e.IsDiff {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("initial version, %d lines", strings.Count(e.Diff, "\n")+1)))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(MutedStyle.Render(fmt.Sprintf("+%d -%d", e.Added, e.Removed)))
	b.WriteString("\n")
	for _, line := range strings.Split(e.Diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+ "):
			b.WriteString(AddedStyle.Render(line))
		case strings.HasPrefix(line, "- "):
			b.WriteString(RemovedStyle.Render(line))
		default:
			b.WriteString(MutedStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}
