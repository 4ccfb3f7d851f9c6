package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fixforward/fixforward/internal/domain"
)

var (
	jestSummaryRe  = regexp.MustCompile(`^Tests:\s+(.*?\d+ total)`)
	jestCountRe    = regexp.MustCompile(`(\d+) (failed|passed|total)`)
	jestFailFileRe = regexp.MustCompile(`^FAIL\s+(\S+)`)
	jestBulletRe   = regexp.MustCompile(`^●\s+(.+?)\s*$`)
	jestCrossRe    = regexp.MustCompile(`^[✕×✗]\s+(.+?)(?:\s+\(\d+\s*ms\))?$`)
	jestExpectedRe = regexp.MustCompile(`^Expected(?: value)?:?\s+(.+)$`)
	jestReceivedRe = regexp.MustCompile(`^Received(?: value)?:?\s+(.+)$`)
	jsFrameRe      = regexp.MustCompile(`at (?:.*? \()?((?:[A-Za-z]:)?[^\s():]+):(\d+):\d+\)?$`)

	mochaPassingRe = regexp.MustCompile(`^(\d+) passing\b`)
	mochaFailingRe = regexp.MustCompile(`^(\d+) failing\b`)
	mochaTitleRe   = regexp.MustCompile(`^(\d+)\) (.+)$`)
	mochaErrorRe   = regexp.MustCompile(`^(\w*Error\b.*|Error:.*)$`)
)

func parseNode(lines []string) domain.TestReport {
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if jestSummaryRe.MatchString(t) || jestFailFileRe.MatchString(t) || jestBulletRe.MatchString(t) {
			return parseJest(lines)
		}
	}
	return parseMocha(lines)
}

func parseJest(lines []string) domain.TestReport {
	var report domain.TestReport
	for _, l := range lines {
		m := jestSummaryRe.FindStringSubmatch(strings.TrimSpace(l))
		if m == nil {
			continue
		}
		for _, c := range jestCountRe.FindAllStringSubmatch(m[1], -1) {
			switch c[2] {
			case "failed":
				report.Failed += atoi(c[1])
			case "passed":
				report.Passed += atoi(c[1])
			case "total":
				report.Total += atoi(c[1])
			}
		}
	}

	report.Failures = jestBlocks(lines)
	if len(report.Failures) == 0 {
		report.Failures = jestCrosses(lines)
	}
	return report
}

// jestBlocks parses the "● Suite › test" detail blocks Jest prints for
// every failing test, tracking the enclosing "FAIL file" header.
func jestBlocks(lines []string) []domain.Failure {
	var (
		failures []domain.Failure
		file     string
		cur      *domain.Failure
		body     []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		finishJestFailure(cur, body)
		failures = append(failures, *cur)
		cur, body = nil, nil
	}

	for _, l := range lines {
		t := strings.TrimSpace(l)
		switch {
		case jestFailFileRe.MatchString(t):
			flush()
			file = strings.TrimPrefix(jestFailFileRe.FindStringSubmatch(t)[1], "./")
		case strings.HasPrefix(t, "PASS ") || strings.HasPrefix(t, "Test Suites:") || strings.HasPrefix(t, "Tests:"):
			flush()
		case jestBulletRe.MatchString(t):
			flush()
			name := jestBulletRe.FindStringSubmatch(t)[1]
			if name == "Console" {
				continue
			}
			cur = &domain.Failure{TestName: name, FilePath: file}
		case cur != nil:
			body = append(body, l)
		}
	}
	flush()
	return failures
}

func finishJestFailure(f *domain.Failure, body []string) {
	var first, expected, received string
	for _, l := range body {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		if first == "" {
			first = t
		}
		if m := jestExpectedRe.FindStringSubmatch(t); m != nil && expected == "" {
			expected = m[1]
		}
		if m := jestReceivedRe.FindStringSubmatch(t); m != nil && received == "" {
			received = m[1]
		}
		if f.Line == 0 {
			if path, line, ok := jsFrame(t); ok && (f.FilePath == "" || sameFile(path, f.FilePath)) {
				if f.FilePath == "" {
					f.FilePath = path
				}
				f.Line = line
			}
		}
	}

	switch {
	case expected != "" && received != "":
		f.Message = fmt.Sprintf("Expected %s, received %s", expected, received)
	case expected != "":
		f.Message = "Expected " + expected
	default:
		f.Message = first
	}
	f.RawExcerpt = excerpt(body)
}

func jestCrosses(lines []string) []domain.Failure {
	var (
		failures []domain.Failure
		file     string
	)
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if m := jestFailFileRe.FindStringSubmatch(t); m != nil {
			file = strings.TrimPrefix(m[1], "./")
			continue
		}
		m := jestCrossRe.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		f := domain.Failure{TestName: m[1], FilePath: file}
		end := min(i+20, len(lines))
		finishJestFailure(&f, lines[i+1:end])
		failures = append(failures, f)
	}
	return failures
}

func parseMocha(lines []string) domain.TestReport {
	var report domain.TestReport
	failingAt := -1
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if m := mochaPassingRe.FindStringSubmatch(t); m != nil {
			report.Passed = atoi(m[1])
		}
		if m := mochaFailingRe.FindStringSubmatch(t); m != nil {
			report.Failed = atoi(m[1])
			failingAt = i
		}
	}
	report.Total = report.Passed + report.Failed
	if failingAt < 0 {
		return report
	}

	// After "N failing", each failure is "N) title" possibly continued on
	// indented lines until one ending in ':', then the error and stack.
	var starts []int
	for i := failingAt + 1; i < len(lines); i++ {
		if mochaTitleRe.MatchString(strings.TrimSpace(lines[i])) {
			starts = append(starts, i)
		}
	}
	for n, start := range starts {
		end := len(lines)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		report.Failures = append(report.Failures, mochaFailure(lines[start:end]))
	}
	return report
}

func mochaFailure(block []string) domain.Failure {
	title := []string{mochaTitleRe.FindStringSubmatch(strings.TrimSpace(block[0]))[2]}
	i := 1
	if !strings.HasSuffix(title[0], ":") {
		for ; i < len(block); i++ {
			t := strings.TrimSpace(block[i])
			if t == "" {
				break
			}
			title = append(title, t)
			if strings.HasSuffix(t, ":") {
				i++
				break
			}
		}
	}
	name := strings.TrimSuffix(strings.Join(title, " "), ":")

	f := domain.Failure{TestName: name}
	body := block[min(i, len(block)):]
	for _, l := range body {
		if m := mochaErrorRe.FindStringSubmatch(strings.TrimSpace(l)); m != nil {
			f.Message = m[1]
			break
		}
	}
	f.FilePath, f.Line, _ = mochaLocation(body)
	f.RawExcerpt = excerpt(body)
	return f
}

// mochaLocation picks the frame of the test itself so the failure keeps the
// same identity wherever the error was thrown: the `Context.<anonymous>`
// frame mocha runs test bodies in, then a frame in a test file, then the
// first project frame.
func mochaLocation(body []string) (string, int, bool) {
	var (
		testPath, firstPath string
		testLine, firstLine int
	)
	for _, l := range body {
		t := strings.TrimSpace(l)
		path, line, ok := jsFrame(t)
		if !ok {
			continue
		}
		if strings.Contains(t, "Context.<anonymous>") {
			return path, line, true
		}
		if testPath == "" && isJSTestFile(path) {
			testPath, testLine = path, line
		}
		if firstPath == "" {
			firstPath, firstLine = path, line
		}
	}
	if testPath != "" {
		return testPath, testLine, true
	}
	return firstPath, firstLine, firstPath != ""
}

func isJSTestFile(path string) bool {
	path = strings.ReplaceAll(path, "\\", "/")
	base := path[strings.LastIndexByte(path, '/')+1:]
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	for _, dir := range strings.Split(path, "/")[:strings.Count(path, "/")] {
		switch dir {
		case "test", "tests", "spec", "__tests__":
			return true
		}
	}
	return false
}

// jsFrame parses a V8 stack frame, ignoring dependency and runtime frames.
func jsFrame(line string) (string, int, bool) {
	if !strings.HasPrefix(line, "at ") {
		return "", 0, false
	}
	m := jsFrameRe.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	path := m[1]
	if strings.Contains(path, "node_modules") || strings.HasPrefix(path, "node:") || strings.HasPrefix(path, "internal/") {
		return "", 0, false
	}
	return path, atoi(m[2]), true
}
