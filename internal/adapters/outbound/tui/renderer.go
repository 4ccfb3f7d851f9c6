package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fixforward/fixforward/internal/domain"
)

// ── Claude-inspired warm palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	info    = lipgloss.Color("#8B949E") // soft blue-gray
	lime    = lipgloss.Color("#A3E635")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	categoryColors = map[domain.Category]lipgloss.Color{
		domain.CategorySyntaxError: danger,
		domain.CategoryDependency:  lipgloss.Color("#FB923C"), // orange
		domain.CategoryAPIChange:   warning,
		domain.CategoryAssertion:   lime,
		domain.CategoryEnvMismatch: info,
		domain.CategoryLint:        info,
		domain.CategoryFlakyTest:   dim,
		domain.CategoryUnknown:     dim,
	}

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	errorTagStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnTagStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	infoTagStyle  = lipgloss.NewStyle().Foreground(info)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	hintStyle     = lipgloss.NewStyle().Foreground(dim).Italic(true)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderDiagnosis shows each failure with its classification.
func RenderDiagnosis(d *domain.Diagnosis) string {
	var b strings.Builder

	// ── Header ──
	title := headerStyle.Render("fixforward")
	subtitle := dimStyle.Render(fmt.Sprintf("Diagnosis · %s", d.Ecosystem))
	var status string
	if d.Passing() {
		status = passStyle.Bold(true).Render("All tests passing")
	} else {
		status = failStyle.Bold(true).Render(fmt.Sprintf("%d failing", len(d.Classifications)))
		if d.Report.Passed > 0 {
			status += "  " + dimStyle.Render(fmt.Sprintf("%d passed", d.Report.Passed))
		}
	}
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + status))
	b.WriteString("\n\n")

	// ── Failures ──
	for _, c := range d.Classifications {
		renderClassification(&b, c)
	}
	if len(d.Classifications) > 0 {
		b.WriteString("  " + separatorLine + "\n")
	}
	return b.String()
}

func renderClassification(b *strings.Builder, c domain.Classification) {
	color := categoryColor(c.Category)
	icon := lipgloss.NewStyle().Foreground(color).Render("●")
	tag := lipgloss.NewStyle().Foreground(color).Bold(true).Render(string(c.Category))
	conf := dimStyle.Render(fmt.Sprintf("%.2f", c.Confidence))

	fmt.Fprintf(b, "  %s %s  %s %s\n", icon, titleStyle.Render(c.Failure.TestName), tag, conf)
	if loc := c.Failure.Location(); loc != "" {
		fmt.Fprintf(b, "    %s\n", fileStyle.Render(loc))
	}
	fmt.Fprintf(b, "    %s\n\n", dimStyle.Render(c.Summary))
}

// RenderVerification shows the before/after comparison of a patch.
func RenderVerification(v *domain.VerificationResult) string {
	var b strings.Builder

	b.WriteString("  " + titleStyle.Render("Verification") + "  ")
	b.WriteString(confidenceBar(v.Confidence, 20))
	b.WriteString(" " + lipgloss.NewStyle().Bold(true).Foreground(confidenceColor(v.Confidence)).
		Render(fmt.Sprintf("%.2f", v.Confidence)))
	b.WriteString("\n\n")

	renderFailureGroup(&b, "resolved", passStyle, "✓", v.Resolved)
	renderFailureGroup(&b, "still failing", warnStyle, "●", v.Unresolved)
	renderFailureGroup(&b, "regressed", failStyle, "✗", v.Regressed)
	if len(v.Resolved)+len(v.Unresolved)+len(v.Regressed) == 0 {
		b.WriteString("  " + passStyle.Render("No failures before or after.") + "\n")
	}
	return b.String()
}

func renderFailureGroup(b *strings.Builder, label string, style lipgloss.Style, icon string, failures []domain.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s %s\n", style.Bold(true).Render(label), dimStyle.Render(fmt.Sprintf("(%d)", len(failures))))
	for _, f := range failures {
		line := fmt.Sprintf("    %s %s", style.Render(icon), f.TestName)
		if loc := f.Location(); loc != "" {
			line += "  " + faintStyle.Render(loc)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

// RenderFixReport summarizes a whole run.
func RenderFixReport(r *domain.FixReport) string {
	var b strings.Builder

	switch r.Outcome {
	case domain.OutcomeAllPassing:
		b.WriteString("  " + passStyle.Render("All tests pass. Nothing to fix.") + "\n")
		return b.String()
	case domain.OutcomeNoPatch:
		b.WriteString("  " + warnTagStyle.Render("no patch") + "  " +
			dimStyle.Render("The fix generator's response contained no usable file edits.") + "\n")
		return b.String()
	case domain.OutcomeDeclined:
		b.WriteString("  " + dimStyle.Render("Patch declined. Nothing was changed.") + "\n")
		return b.String()
	case domain.OutcomeDryRun:
		b.WriteString("  " + infoTagStyle.Render("dry run") + "  " +
			dimStyle.Render(fmt.Sprintf("%d file(s) would be patched. Nothing was changed.", len(r.Candidates))) + "\n")
		return b.String()
	}

	if r.Rollback != nil {
		fmt.Fprintf(&b, "  %s %s  %s\n",
			passStyle.Render("✓"),
			titleStyle.Render(fmt.Sprintf("Applied %d file(s)", len(r.Rollback.PatchedFiles))),
			dimStyle.Render("on "+r.Rollback.AutoBranchName),
		)
		b.WriteString("\n")
	}

	if r.Verification != nil {
		b.WriteString(RenderVerification(r.Verification))
	}
	if r.Outcome == domain.OutcomeUnverified {
		b.WriteString("  " + warnTagStyle.Render("unverified") + "  " +
			dimStyle.Render("Tests could not be re-run: "+r.VerifyError) + "\n\n")
	}

	b.WriteString("  " + separatorLine + "\n")
	b.WriteString("  " + hintStyle.Render("Run `fixforward rollback` to undo this patch.") + "\n")
	return b.String()
}

// RenderHistory formats run history for terminal output.
func RenderHistory(entries []domain.RunEntry) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No run history found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Run History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for _, e := range entries {
		ts := e.Timestamp
		if len(ts) > 16 {
			ts = strings.Replace(ts[:16], "T", " ", 1)
		}
		line := fmt.Sprintf("  %s  %s  %s",
			dimStyle.Render(ts),
			outcomeTag(e.Outcome),
			dimStyle.Render(fmt.Sprintf("%d → %d failing", e.FailuresBefore, e.FailuresAfter)),
		)
		if e.Outcome == domain.OutcomeApplied {
			line += "  " + lipgloss.NewStyle().Foreground(confidenceColor(e.Confidence)).
				Render(fmt.Sprintf("%.2f", e.Confidence))
		}
		if e.Regressed > 0 {
			line += "  " + failStyle.Render(fmt.Sprintf("%d regressed", e.Regressed))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RenderError formats an error the way every command reports failure.
func RenderError(err error) string {
	return "  " + errorTagStyle.Render("error") + " " + err.Error() + "\n"
}

func outcomeTag(o domain.RunOutcome) string {
	label := padRight(string(o), 11)
	switch o {
	case domain.OutcomeApplied, domain.OutcomeAllPassing:
		return passStyle.Render(label)
	case domain.OutcomeUnverified, domain.OutcomeNoPatch:
		return warnStyle.Render(label)
	default:
		return infoTagStyle.Render(label)
	}
}

func confidenceBar(conf float64, width int) string {
	filled := max(0, min(int(conf*float64(width)+0.5), width))
	empty := width - filled

	color := confidenceColor(conf)
	filledStr := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyStr := lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("░", empty))
	return filledStr + emptyStr
}

func confidenceColor(conf float64) lipgloss.Color {
	switch {
	case conf >= 0.8:
		return success
	case conf >= 0.6:
		return lime
	case conf >= 0.4:
		return warning
	default:
		return danger
	}
}

func categoryColor(c domain.Category) lipgloss.Color {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return fg
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
