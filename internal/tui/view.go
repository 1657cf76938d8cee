package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-sidecar-shell/internal/readiness"
)

const logPaneHeight = 12

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderHeader(), m.renderStatus()}

	if m.prompt.active() {
		sections = append(sections, m.renderDialog())
	}
	if m.showLogs {
		sections = append(sections, m.renderLogs())
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(" go-sidecar-shell %s │ Elapsed: %s ",
		m.version,
		formatDuration(time.Since(m.startTime)),
	)
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Status
// =============================================================================

func (m Model) renderStatus() string {
	lines := []string{
		RenderKeyValue("Status", m.statusLabel()),
		RenderKeyValue("State", m.state),
	}
	if m.port > 0 {
		lines = append(lines, RenderKeyValue("Port", strconv.Itoa(m.port)))
	}
	if m.serverURL != "" {
		lines = append(lines, RenderKeyValue("Server", m.serverURL))
	}
	if m.outcome != nil && m.outcome.OK() {
		lines = append(lines, RenderKeyValue("Endpoint", m.outcome.Endpoint.BaseURL()))
		if m.outcome.Process != nil {
			lines = append(lines, RenderKeyValue("Sidecar PID", strconv.Itoa(m.outcome.Process.PID())))
		}
		lines = append(lines, RenderKeyValue("Ready after", m.resolvedAt.Sub(m.startTime).Round(time.Millisecond).String()))
	}
	if m.metricsAddr != "" {
		lines = append(lines, RenderKeyValue("Metrics", m.metricsAddr))
	}
	if m.outcome != nil && !m.outcome.OK() {
		lines = append(lines, "", statusError.Render(firstLine(m.outcome.Reason())))
	}

	return sectionHeaderStyle.Render("Server") + "\n" + strings.Join(lines, "\n")
}

func (m Model) statusLabel() string {
	switch {
	case m.outcome != nil && !m.outcome.OK():
		return statusError.Render("● Failed")
	case m.serverReady && m.outcome != nil && m.outcome.Endpoint.Kind == readiness.KindRemote:
		return statusOK.Render("● Ready (remote)")
	case m.serverReady:
		return statusOK.Render("● Ready")
	case m.prompt.active():
		return statusWarning.Render("● Waiting for you")
	default:
		return m.spinner.View() + " " + mutedStyle.Render("Starting")
	}
}

// =============================================================================
// Dialog
// =============================================================================

func (m Model) renderDialog() string {
	var btns []string
	for i, b := range buttons {
		style := buttonStyle
		if i == m.prompt.selected {
			style = buttonActiveStyle
		}
		btns = append(btns, style.Render(b.label))
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.prompt.prompt.Title),
		"",
		m.prompt.prompt.Message,
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, btns...),
	)
	return dialogStyle.Render(body)
}

// =============================================================================
// Logs
// =============================================================================

func (m Model) renderLogs() string {
	header := sectionHeaderStyle.Render("Sidecar output")
	if m.logContent == "" {
		return header + "\n" + dimStyle.Render("(no output yet)")
	}
	return header + "\n" + m.viewport.View()
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	if m.prompt.active() {
		return footerStyle.Render("r retry • l start local • c cancel • ←/→ select • enter confirm")
	}
	return footerStyle.Render("v toggle logs • q quit")
}

// =============================================================================
// Formatting Helpers
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
