package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fixforward/fixforward/internal/domain"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const contextLines = 3

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	addedStyle         = lipgloss.NewStyle().Foreground(success)
	removedStyle       = lipgloss.NewStyle().Foreground(danger)
	hunkStyle          = lipgloss.NewStyle().Foreground(info)
)

// RenderPatchPreview shows what applying candidates would change.
// originals maps a path to its current content; a missing key is a new file.
func RenderPatchPreview(candidates []domain.PatchCandidate, originals map[string]string, explanation string) string {
	var b strings.Builder

	strategy := ""
	if len(candidates) > 0 {
		strategy = string(candidates[0].Strategy)
	}
	fmt.Fprintf(&b, "  %s %s  %s\n",
		sectionHeaderStyle.Render("Proposed patch"),
		dimStyle.Render(fmt.Sprintf("(%d file(s))", len(candidates))),
		faintStyle.Render("via "+strategy),
	)
	if explanation != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(explanation, "\n") {
			b.WriteString("  " + hintStyle.Render(line) + "\n")
		}
	}

	for _, c := range candidates {
		old, exists := originals[c.Path]
		b.WriteString("\n")
		if !exists {
			fmt.Fprintf(&b, "  %s %s\n", addedStyle.Render("new"), titleStyle.Render(c.Path))
		} else {
			fmt.Fprintf(&b, "  %s %s\n", warnStyle.Render("mod"), titleStyle.Render(c.Path))
		}
		diff := UnifiedDiff(c.Path, old, c.Content, !exists)
		if diff == "" {
			b.WriteString("    " + dimStyle.Render("(no changes)") + "\n")
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
			b.WriteString("    " + styleDiffLine(line) + "\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func styleDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return fileStyle.Render(line)
	case strings.HasPrefix(line, "@@"):
		return hunkStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return addedStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return removedStyle.Render(line)
	default:
		return dimStyle.Render(line)
	}
}

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
	// 1-based position of this line in the old and new file.
	oldNo, newNo int
}

// UnifiedDiff renders a line-level unified diff of before -> after with
// three lines of context. It returns "" when the contents are identical
// and the file is not being created.
func UnifiedDiff(path, before, after string, created bool) string {
	if before == after && !created {
		return ""
	}
	lines := lineDiff(before, after)

	var b strings.Builder
	if created {
		b.WriteString("--- /dev/null\n")
	} else {
		b.WriteString("--- a/" + path + "\n")
	}
	b.WriteString("+++ b/" + path + "\n")

	for _, h := range hunks(lines) {
		seg := lines[h[0]:h[1]]
		var oldCount, newCount int
		for _, l := range seg {
			if l.op != diffmatchpatch.DiffInsert {
				oldCount++
			}
			if l.op != diffmatchpatch.DiffDelete {
				newCount++
			}
		}
		fmt.Fprintf(&b, "@@ -%s +%s @@\n",
			hunkRange(seg[0].oldNo, oldCount), hunkRange(seg[0].newNo, newCount))
		for _, l := range seg {
			switch l.op {
			case diffmatchpatch.DiffInsert:
				b.WriteString("+")
			case diffmatchpatch.DiffDelete:
				b.WriteString("-")
			default:
				b.WriteString(" ")
			}
			b.WriteString(l.text + "\n")
		}
	}
	return b.String()
}

func lineDiff(before, after string) []diffLine {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var out []diffLine
	oldNo, newNo := 1, 1
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		for _, text := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out = append(out, diffLine{op: d.Type, text: text, oldNo: oldNo, newNo: newNo})
			if d.Type != diffmatchpatch.DiffInsert {
				oldNo++
			}
			if d.Type != diffmatchpatch.DiffDelete {
				newNo++
			}
		}
	}
	return out
}

// hunks groups changed lines with their context into [start, end) ranges,
// merging ranges whose context overlaps.
func hunks(lines []diffLine) [][2]int {
	var out [][2]int
	for i, l := range lines {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		start := max(0, i-contextLines)
		end := min(len(lines), i+contextLines+1)
		if n := len(out); n > 0 && start <= out[n-1][1] {
			out[n-1][1] = max(out[n-1][1], end)
			continue
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

func hunkRange(start, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", start-1)
	}
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// RenderStatus shows the pending rollback state, if any.
func RenderStatus(state *domain.RollbackState, statePath string) string {
	if state == nil {
		return "  " + dimStyle.Render("No pending fixforward patch.") + "\n"
	}

	var b strings.Builder
	title := headerStyle.Render("fixforward")
	subtitle := warnStyle.Bold(true).Render("Rollback pending")
	b.WriteString(boxStyle.Render(title + "\n" + subtitle))
	b.WriteString("\n\n")

	field := func(name, value string) {
		fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render(padRight(name, 16)), value)
	}
	field("branch", state.AutoBranchName)
	field("original branch", state.OriginalBranch)
	field("created", state.CreatedAt.Local().Format(time.DateTime))
	if state.StashRef != nil {
		field("stash", shortSHA(*state.StashRef))
	} else {
		field("stash", faintStyle.Render("none"))
	}
	field("state file", fileStyle.Render(statePath))

	if len(state.PatchedFiles) > 0 {
		fmt.Fprintf(&b, "\n  %s %s\n",
			sectionHeaderStyle.Render("Patched files"),
			dimStyle.Render(fmt.Sprintf("(%d)", len(state.PatchedFiles))),
		)
		for _, f := range state.PatchedFiles {
			mark := warnStyle.Render("mod")
			if f.Absent() {
				mark = addedStyle.Render("new")
			}
			fmt.Fprintf(&b, "    %s %s\n", mark, f.Path)
		}
	}

	b.WriteString("\n  " + hintStyle.Render("Run `fixforward rollback` to restore the original tree.") + "\n")
	return b.String()
}

// RenderRollback confirms a completed rollback.
func RenderRollback(state *domain.RollbackState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s\n",
		passStyle.Render("✓"),
		titleStyle.Render(fmt.Sprintf("Rolled back %s", state.AutoBranchName)),
	)
	fmt.Fprintf(&b, "    %s\n", dimStyle.Render(fmt.Sprintf("back on %s, %d file(s) restored", state.OriginalBranch, len(state.PatchedFiles))))
	if state.StashRef != nil {
		fmt.Fprintf(&b, "    %s\n", dimStyle.Render("stashed changes restored ("+shortSHA(*state.StashRef)+")"))
	}
	return b.String()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
