// Package extract turns raw test-runner output into structured failures.
//
// Each ecosystem has a line-oriented grammar. Lines a grammar does not
// recognize are skipped; extraction never fails as a whole.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fixforward/fixforward/internal/domain"
)

const (
	// maxExcerpt caps the raw excerpt kept per failure.
	maxExcerpt = 4000
	// syntheticTail is how much trailing output a synthetic failure carries.
	syntheticTail = 2000
	// maxFileLevelErrors caps collection/compile errors; they usually repeat.
	maxFileLevelErrors = 5
)

type grammar func(lines []string) domain.TestReport

var grammars = map[domain.Ecosystem]grammar{
	domain.EcosystemPython: parsePytest,
	domain.EcosystemNode:   parseNode,
	domain.EcosystemRust:   parseCargo,
}

// Extract returns the failures found in raw, in the order they appear.
func Extract(raw string, eco domain.Ecosystem) []domain.Failure {
	return Parse(raw, eco).Failures
}

// Parse runs the ecosystem grammar over raw and returns the failures
// together with the counts the runner printed. When the runner admits
// failures but none could be structured, a single synthetic failure
// carrying the tail of the output is returned instead.
func Parse(raw string, eco domain.Ecosystem) domain.TestReport {
	g, ok := grammars[eco]
	if !ok {
		return domain.TestReport{}
	}

	report := g(splitLines(raw))
	report.Failures = dedupe(report.Failures)
	for i := range report.Failures {
		report.Failures[i].Ecosystem = eco
	}

	if len(report.Failures) == 0 && report.ReportsFailures() {
		report.Failures = []domain.Failure{Synthetic(raw, eco, report.Failed)}
	}
	return report
}

// ParseRun is Parse plus the process exit status: a non-zero exit with
// nothing structured also yields the synthetic failure.
func ParseRun(run *domain.TestRun) domain.TestReport {
	report := Parse(run.Output, run.Ecosystem)
	if len(report.Failures) == 0 && run.ExitCode != 0 {
		report.Failures = []domain.Failure{Synthetic(run.Output, run.Ecosystem, report.Failed)}
		if report.Failed == 0 {
			report.Failed = 1
		}
	}
	return report
}

// Synthetic builds the stand-in failure for output no grammar understood.
func Synthetic(raw string, eco domain.Ecosystem, failed int) domain.Failure {
	msg := "test run failed but no failure could be parsed"
	if failed > 0 {
		msg = fmt.Sprintf("%d test(s) failed but none could be parsed", failed)
	}
	return domain.Failure{
		TestName:   domain.UnparsedTestName,
		Message:    msg,
		RawExcerpt: tail(stripANSI(raw), syntheticTail),
		Ecosystem:  eco,
	}
}

func dedupe(failures []domain.Failure) []domain.Failure {
	seen := make(map[domain.FailureKey]bool, len(failures))
	out := failures[:0]
	for _, f := range failures {
		if seen[f.Key()] {
			continue
		}
		seen[f.Key()] = true
		out = append(out, f)
	}
	return out
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func splitLines(raw string) []string {
	raw = stripANSI(raw)
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Split(raw, "\n")
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func excerpt(lines []string) string {
	return tail(strings.TrimRight(strings.Join(lines, "\n"), "\n "), maxExcerpt)
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// sameFile reports whether a traceback path refers to the given test file,
// tolerating absolute paths and "./" prefixes on either side.
func sameFile(framePath, file string) bool {
	if framePath == "" || file == "" {
		return false
	}
	a := strings.TrimPrefix(strings.ReplaceAll(framePath, "\\", "/"), "./")
	b := strings.TrimPrefix(strings.ReplaceAll(file, "\\", "/"), "./")
	return a == b || strings.HasSuffix(a, "/"+b) || strings.HasSuffix(b, "/"+a)
}
