package classify

import (
	"regexp"

	"github.com/fixforward/fixforward/internal/domain"
)

// Rule is one pattern in the classification table.
type Rule struct {
	ID         string
	Category   domain.Category
	Confidence float64
	Pattern    *regexp.Regexp
	Summary    string
}

type pattern struct {
	name    string
	expr    string
	summary string
}

type ruleGroup struct {
	category   domain.Category
	confidence float64
	patterns   []pattern
}

// table is the ordered rule table. Groups are tried top to bottom and
// patterns within a group in order; the first match wins.
var table = []ruleGroup{
	{domain.CategorySyntaxError, 0.95, []pattern{
		{"python-syntax", `SyntaxError:\s*(.+)`, "Syntax error: ${1}"},
		{"python-indentation", `IndentationError:\s*(.+)`, "Indentation error: ${1}"},
		{"unexpected-token", `Unexpected token\s*(.*)`, "Unexpected token ${1}"},
		{"parse-error", `parse error`, "Parse error"},
		{"expected-found", `expected\s+.+,\s+found\s+(.+)`, "Expected/found mismatch: ${1}"},
	}},
	{domain.CategoryDependency, 0.90, []pattern{
		{"python-module-not-found", `ModuleNotFoundError:\s*No module named '(\S+)'`, "Missing module: ${1}"},
		{"python-import", `ImportError:\s*(.+)`, "Import error: ${1}"},
		{"node-module", `Cannot find module '(\S+)'`, "Missing Node module: ${1}"},
		{"module-named", `No module named '?([\w.]+)'?`, "Missing module: ${1}"},
		{"rust-unresolved-import", "unresolved import `(\\S+)`", "Unresolved import: ${1}"},
		{"rust-missing-crate", "can't find crate for `(\\S+)`", "Missing Rust crate: ${1}"},
		{"rust-package-not-found", "package `(\\S+)`.+not found", "Missing Rust crate: ${1}"},
		{"pip-version", `Could not find a version that satisfies`, "Dependency version conflict"},
	}},
	{domain.CategoryAPIChange, 0.85, []pattern{
		{"python-attribute", `AttributeError:\s*'?(\w+)'?\s+object has no attribute '(\w+)'`, "${1} has no attribute '${2}'"},
		{"python-arguments", `TypeError:\s*(\w+)\(\) (?:got an unexpected|missing \d+ required|takes \d+)`, "Wrong arguments for ${1}()"},
		{"missing-argument", `missing \d+ required (?:positional )?argument`, "Missing required argument"},
		{"rust-no-member", "has no member named `(\\w+)`", "No member: ${1}"},
		{"rust-no-method", "no method named `(\\w+)`", "No method: ${1}"},
		{"rust-cannot-find", "cannot find (?:function|value|type|struct|macro) `(\\w+)`", "Unknown symbol: ${1}"},
		{"js-not-a-function", `is not a function`, "Not a function"},
		{"not-defined", `is not defined`, "Not defined"},
	}},
	{domain.CategoryAssertion, 0.85, []pattern{
		{"python-assert", `AssertionError:\s*assert\s+(.+)`, "Assertion failed: ${1}"},
		{"assertion-error-message", `AssertionError(?: \[\w+\])?:\s*(.+)`, "Assertion: ${1}"},
		{"pytest-assert-values", `assert\s+[\d.]+\s*==\s*[\d.]+`, "Assertion: value mismatch"},
		{"pytest-assert-eq", `assert\s+(.+?)\s*==\s*(.+)`, "Assertion: ${1} != ${2}"},
		{"rust-assert-eq", "left:\\s*`?(.+?)`?,?\\s*\\n\\s*right:\\s*`?(.+?)`?$", "assert_eq! left=${1}, right=${2}"},
		{"rust-assertion", "assertion\\b.*\\bfailed", "Assertion failed"},
		{"jest-expected-received", `Expected (.+), received (.+)`, "Expected ${1}, got ${2}"},
		{"jest-expect", `expect\(.+\)\.to(?:Equal|Be)\((.+?)\)`, "Expected ${1}"},
		{"chai-expected", `Expected\s+(.+?)\s+to (?:equal|be)\s+(.+)`, "Expected ${2}, got ${1}"},
		{"junit-expected", `expected:\s*(.+?)\s+but was:\s*(.+)`, "Expected ${1}, got ${2}"},
		{"not-equal", `!=\s`, "Value mismatch"},
		{"assertion-error", `AssertionError`, "Assertion error"},
	}},
	{domain.CategoryEnvMismatch, 0.80, []pattern{
		{"version-mismatch", `version mismatch`, "Version mismatch"},
		{"requires-python", `requires Python\s*([\d.]+)`, "Requires Python ${1}"},
		{"node-engine", `engine .+ is incompatible`, "Engine incompatible"},
		{"enoent", `ENOENT.+?'(\S+)'`, "Missing file or command: ${1}"},
		{"command-not-found", `command not found:\s*(\S+)`, "Command not found: ${1}"},
		{"rust-msrv", `minimum supported rust version`, "Rust version too old"},
	}},
	{domain.CategoryLint, 0.75, []pattern{
		{"flake8", `flake8`, "Flake8 lint error"},
		{"eslint", `eslint`, "ESLint error"},
		{"clippy", `clippy`, "Clippy warning"},
		{"compiler-warning", `warning\[(\w+)\]`, "Compiler warning: ${1}"},
		{"formatting", `formatting.+differ`, "Formatting difference"},
	}},
	{domain.CategoryFlakyTest, 0.60, []pattern{
		{"timeout", `timed?\s*out`, "Test timed out"},
		{"flaky", `flaky`, "Flaky test"},
		{"intermittent", `intermittent`, "Intermittent failure"},
		{"connection-refused", `connection refused`, "Connection refused"},
		{"connection-reset", `ECONNRESET`, "Connection reset"},
		{"resource-unavailable", `Resource temporarily unavailable`, "Resource unavailable"},
	}},
}

var rules = compile(table)

func compile(groups []ruleGroup) []Rule {
	var out []Rule
	for _, g := range groups {
		for _, p := range g.patterns {
			out = append(out, Rule{
				ID:         string(g.category) + "/" + p.name,
				Category:   g.category,
				Confidence: g.confidence,
				Pattern:    regexp.MustCompile(`(?im)` + p.expr),
				Summary:    p.summary,
			})
		}
	}
	return out
}

// Rules returns the compiled table in priority order.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}
