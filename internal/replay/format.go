// Package replay renders run traces for terminal inspection, either as a
// one-shot dump or in an interactive pager with live updates.
package replay

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/switchboard-ai/switchboard/internal/engine"
	"github.com/switchboard-ai/switchboard/internal/trace"
)

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("13"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(4).
			Align(lipgloss.Right)
)

var divider = dimStyle.Render(strings.Repeat("─", 72))

// Render formats a loaded trace as a styled timeline. With verbose set, the
// full tool records follow the timeline, untruncated.
func Render(tr *trace.Trace, verbose bool) string {
	var buf strings.Builder

	renderHeader(&buf, tr)
	renderTimeline(&buf, tr)
	if verbose && len(tr.Records) > 0 {
		renderRecords(&buf, tr)
	}
	renderSummary(&buf, tr)

	return buf.String()
}

func renderHeader(buf *strings.Builder, tr *trace.Trace) {
	fmt.Fprintln(buf)
	fmt.Fprintf(buf, "%s %s\n", titleStyle.Render("RUN"), valueStyle.Render(tr.RunID))
	fmt.Fprintln(buf, divider)
	fmt.Fprintf(buf, "%s %s\n", labelStyle.Render("Network:"), valueStyle.Render(tr.Network))
	if tr.Input != "" {
		fmt.Fprintf(buf, "%s %s\n", labelStyle.Render("Input:  "), valueStyle.Render(tr.Input))
	}
	fmt.Fprintln(buf)
}

func renderTimeline(buf *strings.Builder, tr *trace.Trace) {
	fmt.Fprintf(buf, "%s %s\n", titleStyle.Render("TIMELINE"),
		dimStyle.Render(fmt.Sprintf("(%d steps)", len(tr.Entries))))
	fmt.Fprintln(buf, divider)

	lastEpoch := -1
	for _, e := range tr.Entries {
		if e.Epoch != lastEpoch {
			fmt.Fprintf(buf, "%s\n", dimStyle.Render(fmt.Sprintf("── epoch %d ──", e.Epoch)))
			lastEpoch = e.Epoch
		}
		fmt.Fprintf(buf, "%s %s\n", stepStyle.Render(fmt.Sprintf("%d", e.Step)), renderEntry(e))
	}
}

func renderEntry(e engine.LogEntry) string {
	agent := agentStyle.Render(e.Agent)

	if e.Kind == engine.EntryTool {
		status := successStyle.Render("ok")
		if e.Status == engine.ToolStatusError {
			status = errorStyle.Render("error")
		}
		line := fmt.Sprintf("%s %s %s %s",
			agent,
			toolStyle.Render(e.ToolKey),
			status,
			dimStyle.Render(e.Duration.Round(time.Millisecond).String()))
		if e.ResponsePreview != "" {
			line += "\n       " + dimStyle.Render(e.ResponsePreview)
		}
		return line
	}

	action := valueStyle.Render(string(e.ActionType))
	if e.Denied {
		action = errorStyle.Render(string(e.ActionType) + " DENIED")
	}
	line := fmt.Sprintf("%s %s", agent, action)
	if e.Detail != "" {
		line += "\n       " + dimStyle.Render(e.Detail)
	}
	return line
}

func renderRecords(buf *strings.Builder, tr *trace.Trace) {
	fmt.Fprintln(buf)
	fmt.Fprintf(buf, "%s %s\n", titleStyle.Render("TOOL RECORDS"),
		dimStyle.Render(fmt.Sprintf("(%d)", len(tr.Records))))
	fmt.Fprintln(buf, divider)

	for _, r := range tr.Records {
		fmt.Fprintf(buf, "%s %s %s\n",
			toolStyle.Render(r.ToolKey),
			dimStyle.Render(r.ExecutionID),
			dimStyle.Render(fmt.Sprintf("agent=%s epoch=%d step=%d", r.Agent, r.Epoch, r.Step)))
		fmt.Fprintf(buf, "  %s %v\n", labelStyle.Render("request: "), r.Request)
		if r.Error != "" {
			fmt.Fprintf(buf, "  %s %s\n", labelStyle.Render("error:   "), errorStyle.Render(r.Error))
		} else {
			fmt.Fprintf(buf, "  %s %v\n", labelStyle.Render("response:"), r.Response)
		}
	}
}

func renderSummary(buf *strings.Builder, tr *trace.Trace) {
	fmt.Fprintln(buf)
	fmt.Fprintln(buf, divider)

	switch {
	case !tr.Finished:
		fmt.Fprintln(buf, warnStyle.Render("RUNNING"))
	case tr.State == string(engine.StateDone):
		fmt.Fprintf(buf, "%s %s\n", successStyle.Render("DONE:"), valueStyle.Render(tr.FinalPayload))
	default:
		fmt.Fprintf(buf, "%s %s\n", errorStyle.Render("FAILED:"), valueStyle.Render(tr.Error))
	}
	fmt.Fprintf(buf, "%s\n", dimStyle.Render(fmt.Sprintf("%d steps, %d tool calls", tr.Steps, len(tr.Records))))
}
