package extract

import (
	"regexp"
	"strings"

	"github.com/fixforward/fixforward/internal/domain"
)

var (
	pytestSummaryRe      = regexp.MustCompile(`^=+ (.+?) in [\d.]+s(?: \([^)]*\))? =+$`)
	pytestCountRe        = regexp.MustCompile(`(\d+) (failed|passed|errors?)\b`)
	pytestShortSummaryRe = regexp.MustCompile(`^=+ short test summary info =+$`)
	pytestResultRe       = regexp.MustCompile(`^(FAILED|ERROR) (.+?)::(.+?)(?: - (.*))?$`)
	pytestCollectLineRe  = regexp.MustCompile(`^ERROR (?:collecting )?(\S+\.py)(?: - (.*))?$`)
	pytestVerboseRe      = regexp.MustCompile(`^(\S+?\.py)::(\S+) (FAILED|ERROR)\b`)
	pytestSectionRe      = regexp.MustCompile(`^_{3,} (.+?) _{3,}$`)
	pytestSeparatorRe    = regexp.MustCompile(`^={3,}`)
	pytestFrameRe        = regexp.MustCompile(`^(\S+\.py):(\d+):`)
	pytestELineRe        = regexp.MustCompile(`^E\s+(.*\S)`)
)

const collectPrefix = "collect: "

type pytestEntry struct {
	file    string
	name    string
	message string
	collect bool
}

type pytestSection struct {
	title string
	lines []string
}

func parsePytest(lines []string) domain.TestReport {
	var report domain.TestReport
	pytestCounts(lines, &report)
	sections := pytestSections(lines)

	entries := pytestShortSummary(lines)
	if len(entries) == 0 {
		entries = pytestVerbose(lines)
	}
	if len(entries) == 0 {
		entries = pytestSectionEntries(sections)
	}

	collected := 0
	for _, e := range entries {
		if e.collect {
			if collected >= maxFileLevelErrors {
				continue
			}
			collected++
		}
		report.Failures = append(report.Failures, e.toFailure(sections))
	}
	return report
}

func pytestCounts(lines []string, report *domain.TestReport) {
	for i := len(lines) - 1; i >= 0; i-- {
		m := pytestSummaryRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		for _, c := range pytestCountRe.FindAllStringSubmatch(m[1], -1) {
			n := atoi(c[1])
			switch c[2] {
			case "passed":
				report.Passed += n
			default:
				report.Failed += n
			}
		}
		report.Total = report.Passed + report.Failed
		return
	}
}

func pytestSections(lines []string) []pytestSection {
	var out []pytestSection
	cur := -1
	for _, line := range lines {
		if m := pytestSectionRe.FindStringSubmatch(line); m != nil {
			out = append(out, pytestSection{title: m[1]})
			cur = len(out) - 1
			continue
		}
		if pytestSeparatorRe.MatchString(line) {
			cur = -1
			continue
		}
		if cur >= 0 {
			out[cur].lines = append(out[cur].lines, line)
		}
	}
	return out
}

func pytestShortSummary(lines []string) []pytestEntry {
	var entries []pytestEntry
	in := false
	for _, line := range lines {
		line = strings.TrimRight(line, " ")
		if pytestShortSummaryRe.MatchString(line) {
			in = true
			continue
		}
		if !in {
			continue
		}
		if pytestSeparatorRe.MatchString(line) {
			break
		}
		if m := pytestResultRe.FindStringSubmatch(line); m != nil {
			entries = append(entries, pytestEntry{file: m[2], name: m[3], message: strings.TrimSpace(m[4])})
			continue
		}
		if m := pytestCollectLineRe.FindStringSubmatch(line); m != nil {
			entries = append(entries, pytestEntry{
				file:    m[1],
				name:    collectPrefix + m[1],
				message: strings.TrimSpace(m[2]),
				collect: true,
			})
		}
	}
	return entries
}

func pytestVerbose(lines []string) []pytestEntry {
	var entries []pytestEntry
	for _, line := range lines {
		if m := pytestVerboseRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			entries = append(entries, pytestEntry{file: m[1], name: m[2]})
		}
	}
	return entries
}

// pytestSectionEntries recovers failures from traceback headers alone,
// for runs that printed neither a short summary nor verbose results.
func pytestSectionEntries(sections []pytestSection) []pytestEntry {
	var entries []pytestEntry
	for _, s := range sections {
		if file, ok := strings.CutPrefix(s.title, "ERROR collecting "); ok {
			entries = append(entries, pytestEntry{file: file, name: collectPrefix + file, collect: true})
			continue
		}
		if strings.HasPrefix(s.title, "ERROR at ") || strings.Contains(s.title, " ") {
			continue
		}
		file := ""
		for _, l := range s.lines {
			if m := pytestFrameRe.FindStringSubmatch(l); m != nil && !internalFrame(m[1]) {
				file = m[1]
				break
			}
		}
		entries = append(entries, pytestEntry{file: file, name: strings.ReplaceAll(s.title, ".", "::")})
	}
	return entries
}

func (e pytestEntry) titles() []string {
	if e.collect {
		return []string{"ERROR collecting " + e.file}
	}
	dotted := strings.ReplaceAll(e.name, "::", ".")
	return []string{dotted, "ERROR at setup of " + dotted, "ERROR at teardown of " + dotted}
}

func (e pytestEntry) toFailure(sections []pytestSection) domain.Failure {
	f := domain.Failure{TestName: e.name, FilePath: e.file, Message: e.message}

	if s := findSection(sections, e.titles()); s != nil {
		f.RawExcerpt = excerpt(s.lines)
		f.Line = pytestLocation(s.lines, e.file)
		if f.Message == "" {
			f.Message = firstELine(s.lines)
		}
	}
	if f.Message == "" && e.collect {
		f.Message = "(collection error)"
	}
	return f
}

func findSection(sections []pytestSection, titles []string) *pytestSection {
	for _, t := range titles {
		for i := range sections {
			if sections[i].title == t {
				return &sections[i]
			}
		}
	}
	return nil
}

// pytestLocation returns the deepest traceback line that lies in the
// test's own file, skipping frames from the runner and site-packages.
func pytestLocation(lines []string, file string) int {
	line := 0
	for _, l := range lines {
		m := pytestFrameRe.FindStringSubmatch(l)
		if m == nil || internalFrame(m[1]) {
			continue
		}
		if sameFile(m[1], file) {
			line = atoi(m[2])
		}
	}
	return line
}

func internalFrame(path string) bool {
	return strings.Contains(path, "site-packages") ||
		strings.Contains(path, "/_pytest/") ||
		strings.Contains(path, "/pluggy/") ||
		strings.HasPrefix(path, "<")
}

func firstELine(lines []string) string {
	for _, l := range lines {
		if m := pytestELineRe.FindStringSubmatch(l); m != nil {
			return m[1]
		}
	}
	return ""
}
