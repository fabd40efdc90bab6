package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/2beens/edgetrack/internal/timer"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(1, 0)

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

	edgingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))

	finishedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(1, 0)
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("edgetrack"))
	b.WriteString("\n")

	elapsed := m.Elapsed()
	b.WriteString(phaseStyle(m.snapshot.Phase).Render(strings.ToUpper(string(m.snapshot.Phase))))
	b.WriteString("  ")
	b.WriteString(clockStyle.Render(FormatDuration(elapsed.Total)))
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s %s   %s %s   %s %d\n",
		labelStyle.Render("active"), FormatDuration(elapsed.Active),
		labelStyle.Render("edge"), FormatDuration(elapsed.Edge),
		labelStyle.Render("edges"), len(m.snapshot.Laps),
	)

	if lap, open := m.snapshot.CurrentLap(); open {
		lapElapsed := m.clock.Now().Add(m.skew).Sub(lap.Start)
		fmt.Fprintf(&b, "%s %s\n", edgingStyle.Render("current edge"), FormatDuration(lapElapsed))
	}
	if m.snapshot.Phase == timer.PhaseFinished && m.snapshot.FinishedDuringEdge {
		b.WriteString(edgingStyle.Render("finished during an edge"))
		b.WriteString("\n")
	}

	if m.stats != nil {
		fmt.Fprintf(&b, "\n%s %d   %s %.1f%%   %s %d   %s %s\n",
			labelStyle.Render("sessions"), m.stats.TotalSessions,
			labelStyle.Render("success"), m.stats.SuccessRate,
			labelStyle.Render("streak"), m.stats.StreakCount,
			labelStyle.Render("avg"), FormatDuration(time.Duration(m.stats.AverageSessionDuration)*time.Millisecond),
		)
	}
	if m.statsErr != nil {
		b.WriteString(warningStyle.Render("analytics: " + m.statsErr.Error()))
		b.WriteString("\n")
	}

	for _, notice := range m.notices {
		b.WriteString(noticeStyle.Render("★ " + notice))
		b.WriteString("\n")
	}
	for _, warning := range m.warnings {
		b.WriteString(warningStyle.Render("! " + warning))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(warningStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(helpLine(m.snapshot.Phase)))
	return b.String()
}

func phaseStyle(phase timer.Phase) lipgloss.Style {
	switch phase {
	case timer.PhaseActive:
		return activeStyle
	case timer.PhaseEdging:
		return edgingStyle
	case timer.PhaseFinished:
		return finishedStyle
	default:
		return labelStyle
	}
}

func helpLine(phase timer.Phase) string {
	switch phase {
	case timer.PhaseIdle:
		return "s start • q quit"
	case timer.PhaseActive:
		return "e edge • f finish • a abort • q quit"
	case timer.PhaseEdging:
		return "e end edge • f finish • a abort • q quit"
	default:
		return "r reset • q quit"
	}
}

// FormatDuration renders d as m:ss, or h:mm:ss from one hour on.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
