package extract

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/fixforward/fixforward/internal/domain"
)

var (
	cargoResultRe   = regexp.MustCompile(`^test result: (?:ok|FAILED)\. (\d+) passed; (\d+) failed;`)
	cargoFailedRe   = regexp.MustCompile(`^test (\S+) \.\.\. FAILED$`)
	cargoStdoutRe   = regexp.MustCompile(`^---- (\S+) std(?:out|err) ----$`)
	cargoPanicRe    = regexp.MustCompile(`^thread '(.+?)' panicked at (.*)$`)
	cargoNewLocRe   = regexp.MustCompile(`^(\S+?):(\d+):\d+:$`)
	cargoOldEndRe   = regexp.MustCompile(`^(.*)', (\S+?):(\d+):\d+$`)
	cargoLeftRe     = regexp.MustCompile("^left:\\s*`?(.*?)`?,?$")
	cargoRightRe    = regexp.MustCompile("^right:\\s*`?(.*?)`?,?$")
	cargoCompileRe  = regexp.MustCompile(`^error(\[E\d+\])?: (.+)$`)
	cargoArrowRe    = regexp.MustCompile(`^--> (\S+?):(\d+):\d+$`)
	cargoSectionEnd = regexp.MustCompile(`^(failures:|successes:|test result:)`)
	cargoRunningRe  = regexp.MustCompile(`^Running (?:unittests )?(\S+\.rs)\b`)
)

type cargoPanic struct {
	file    string
	line    int
	message []string
}

func parseCargo(lines []string) domain.TestReport {
	var (
		report   domain.TestReport
		order    []string
		sections = map[string][]string{}
		current  string
		// binary is the source file of the test binary cargo is running;
		// sources maps each failed test to it.
		binary  string
		sources = map[string]string{}
	)

	for _, l := range lines {
		t := strings.TrimSpace(l)
		if m := cargoRunningRe.FindStringSubmatch(t); m != nil {
			binary = m[1]
		} else if strings.HasPrefix(t, "Doc-tests ") {
			binary = ""
		}
		if m := cargoResultRe.FindStringSubmatch(t); m != nil {
			report.Passed += atoi(m[1])
			report.Failed += atoi(m[2])
		}
		if m := cargoFailedRe.FindStringSubmatch(t); m != nil {
			order = append(order, m[1])
			if _, ok := sources[m[1]]; !ok {
				sources[m[1]] = binary
			}
		}

		switch {
		case cargoStdoutRe.MatchString(t):
			current = cargoStdoutRe.FindStringSubmatch(t)[1]
			if _, ok := sections[current]; !ok {
				sections[current] = nil
				if !slices.Contains(order, current) {
					order = append(order, current)
				}
				if _, ok := sources[current]; !ok {
					sources[current] = binary
				}
			}
		case cargoSectionEnd.MatchString(t):
			current = ""
		case current != "":
			sections[current] = append(sections[current], l)
		}
	}
	report.Total = report.Passed + report.Failed

	global := cargoPanics(lines)
	for _, name := range order {
		f := domain.Failure{TestName: name, RawExcerpt: excerpt(sections[name])}
		p, ok := cargoPanics(sections[name])[name]
		if !ok {
			p, ok = global[name]
		}
		if ok {
			f.FilePath, f.Line = p.file, p.line
			f.Message = p.summary()
		} else {
			f.Message = "test failed (see raw output)"
		}
		// The test's own source file is its identity. A panic raised
		// elsewhere only keeps its location in the excerpt.
		if src := sources[name]; src != "" && src != f.FilePath {
			f.FilePath, f.Line = src, 0
		}
		report.Failures = append(report.Failures, f)
	}

	if len(report.Failures) == 0 {
		report.Failures = cargoCompileErrors(lines)
	}
	return report
}

// cargoPanics indexes panic reports by thread name. Both the current
// "panicked at file:line:col:" form and the older quoted form are handled.
func cargoPanics(lines []string) map[string]cargoPanic {
	out := map[string]cargoPanic{}
	for i := 0; i < len(lines); i++ {
		m := cargoPanicRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		thread, rest := m[1], m[2]
		var p cargoPanic

		if loc := cargoNewLocRe.FindStringSubmatch(rest); loc != nil {
			p.file, p.line = loc[1], atoi(loc[2])
			for i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if next == "" || strings.HasPrefix(next, "note:") || strings.HasPrefix(next, "stack backtrace:") {
					break
				}
				p.message = append(p.message, next)
				i++
			}
		} else if strings.HasPrefix(rest, "'") {
			text := rest[1:]
			for n := 0; n < 20; n++ {
				if end := cargoOldEndRe.FindStringSubmatch(text); end != nil {
					p.message = append(p.message, strings.TrimSpace(end[1]))
					p.file, p.line = end[2], atoi(end[3])
					break
				}
				p.message = append(p.message, strings.TrimSpace(text))
				if i+1 >= len(lines) {
					break
				}
				i++
				text = strings.TrimSpace(lines[i])
			}
		} else {
			continue
		}
		if _, seen := out[thread]; !seen {
			out[thread] = p
		}
	}
	return out
}

// summary renders the panic as one line, folding assert_eq! operands in.
func (p cargoPanic) summary() string {
	if len(p.message) == 0 {
		return "panicked"
	}
	var left, right string
	for _, l := range p.message[1:] {
		if m := cargoLeftRe.FindStringSubmatch(l); m != nil {
			left = m[1]
		}
		if m := cargoRightRe.FindStringSubmatch(l); m != nil {
			right = m[1]
		}
	}
	if left != "" || right != "" {
		return fmt.Sprintf("%s (left: %s, right: %s)", p.message[0], left, right)
	}
	return strings.Join(p.message, " ")
}

// cargoCompileErrors turns rustc diagnostics into failures when the test
// binary never built. Only errors that point at a source location count.
func cargoCompileErrors(lines []string) []domain.Failure {
	var failures []domain.Failure
	for i := 0; i < len(lines) && len(failures) < maxFileLevelErrors; i++ {
		m := cargoCompileRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		end := i + 1
		for end < len(lines) && strings.TrimSpace(lines[end]) != "" {
			end++
		}
		block := lines[i:end]
		for _, l := range block[1:] {
			loc := cargoArrowRe.FindStringSubmatch(strings.TrimSpace(l))
			if loc == nil {
				continue
			}
			failures = append(failures, domain.Failure{
				TestName:   "compile: " + m[2],
				FilePath:   loc[1],
				Line:       atoi(loc[2]),
				Message:    strings.TrimSpace(lines[i]),
				RawExcerpt: excerpt(block),
			})
			break
		}
		i = end
	}
	return failures
}
