// Package interpret extracts whole-file patch candidates from the free-form
// text a fix generator returns.
//
// Strategies run in a fixed order and the first one that yields at least
// one usable candidate wins. Results of different strategies are never
// merged.
package interpret

import (
	"errors"
	"strings"

	"github.com/fixforward/fixforward/internal/domain"
)

// DefaultFuzzyThreshold is the minimum filename similarity accepted by
// the fuzzy strategy.
const DefaultFuzzyThreshold = 0.80

// Options tunes the interpreter.
type Options struct {
	FuzzyThreshold float64
}

// Rejection is a candidate that was dropped because its path failed the
// containment check.
type Rejection struct {
	Path     string          `json:"path"`
	Strategy domain.Strategy `json:"strategy"`
	Reason   string          `json:"reason"`
}

// Result is the outcome of interpreting one response.
type Result struct {
	Candidates []domain.PatchCandidate `json:"candidates"`
	// Strategy is the strategy that produced Candidates, empty when none did.
	Strategy domain.Strategy `json:"strategy,omitempty"`
	Rejected []Rejection     `json:"rejected,omitempty"`
}

// Empty reports the "no patch extracted" outcome.
func (r Result) Empty() bool {
	return len(r.Candidates) == 0
}

// block is an unvalidated (path, content) pair produced by a strategy from
// the fence at index fence.
type block struct {
	fence   int
	path    string
	content string
}

type strategy struct {
	name    domain.Strategy
	extract func(d *document) []block
}

var chain = []strategy{
	{domain.StrategyMarker, markerBlocks},
	{domain.StrategyHeader, headerBlocks},
	{domain.StrategyLanguage, languageBlocks},
	{domain.StrategyFuzzy, fuzzyBlocks},
}

// document is a parsed response plus the project listing it is matched against.
type document struct {
	lines  []string
	fences []fence
	files  []string
	byPath map[string]bool
	opts   Options

	// rejected marks fences whose named path failed validation. Later
	// strategies must not map them onto some other file.
	rejected map[int]bool
}

// Interpret runs the strategy chain over response. projectFiles are paths
// relative to the project root.
func Interpret(response string, projectFiles []string, opts Options) Result {
	if opts.FuzzyThreshold <= 0 || opts.FuzzyThreshold > 1 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	d := newDocument(response, projectFiles, opts)

	var res Result
	for _, s := range chain {
		candidates, rejected := d.finish(s.name, s.extract(d))
		res.Rejected = append(res.Rejected, rejected...)
		if len(candidates) > 0 {
			res.Candidates = candidates
			res.Strategy = s.name
			return res
		}
	}
	return res
}

func newDocument(response string, projectFiles []string, opts Options) *document {
	lines := splitResponse(response)
	d := &document{
		lines:  lines,
		fences:   scanFences(lines),
		byPath:   make(map[string]bool, len(projectFiles)),
		opts:     opts,
		rejected: map[int]bool{},
	}
	for _, f := range projectFiles {
		clean, err := domain.CleanRelPath(f)
		if err != nil || d.byPath[clean] {
			continue
		}
		d.byPath[clean] = true
		d.files = append(d.files, clean)
	}
	return d
}

// finish validates raw blocks. Blank blocks are skipped, paths outside the
// root are rejected, and a later block for a path replaces an earlier one.
func (d *document) finish(s domain.Strategy, blocks []block) ([]domain.PatchCandidate, []Rejection) {
	var (
		out      []domain.PatchCandidate
		rejected []Rejection
		index    = map[string]int{}
	)
	for _, b := range blocks {
		if strings.TrimSpace(b.content) == "" {
			continue
		}
		clean, err := domain.CleanRelPath(b.path)
		if err != nil {
			reason := err.Error()
			var pt *domain.PathTraversalError
			if errors.As(err, &pt) {
				reason = pt.Reason
			}
			rejected = append(rejected, Rejection{Path: b.path, Strategy: s, Reason: reason})
			d.rejected[b.fence] = true
			continue
		}
		if domain.InDependencyDir(clean) {
			rejected = append(rejected, Rejection{Path: b.path, Strategy: s, Reason: "inside a dependency directory"})
			d.rejected[b.fence] = true
			continue
		}
		clean = d.resolve(clean)

		c := domain.PatchCandidate{Path: clean, Content: b.content, Strategy: s}
		if i, ok := index[clean]; ok {
			out[i] = c
			continue
		}
		index[clean] = len(out)
		out = append(out, c)
	}
	return out, rejected
}

// resolve maps a path named in the response onto the project listing.
// An exact match wins; otherwise a unique project file ending in the
// named path is used. Unknown paths are kept as new files.
func (d *document) resolve(p string) string {
	if len(d.byPath) == 0 || d.byPath[p] {
		return p
	}
	var match string
	for _, f := range d.files {
		if strings.HasSuffix(f, "/"+p) {
			if match != "" {
				return p
			}
			match = f
		}
	}
	if match != "" {
		return match
	}
	return p
}

func markerBlocks(d *document) []block {
	var out []block
	for i, f := range d.fences {
		p, ok := markerPath(precedingLine(d.lines, d.fences, i))
		if !ok {
			continue
		}
		out = append(out, block{fence: i, path: p, content: f.content})
	}
	return out
}

func headerBlocks(d *document) []block {
	var out []block
	for i, f := range d.fences {
		if d.rejected[i] {
			continue
		}
		p, ok := infoPath(f.info)
		if !ok {
			p, ok = headerPath(precedingLine(d.lines, d.fences, i))
		}
		if !ok {
			continue
		}
		out = append(out, block{fence: i, path: p, content: f.content})
	}
	return out
}

// languageBlocks matches language-tagged blocks to the only plausible
// project file of that language.
func languageBlocks(d *document) []block {
	var out []block
	for i, f := range d.fences {
		exts, ok := languageExtensions[f.language()]
		if !ok || d.rejected[i] {
			continue
		}
		pool := d.withExtensions(exts)
		if len(pool) > 1 {
			pool = narrowByMentions(pool, mentions(prose(d.lines, d.fences, i, proseWindow)))
		}
		if len(pool) != 1 {
			continue
		}
		out = append(out, block{fence: i, path: pool[0], content: f.content})
	}
	return out
}

// fuzzyBlocks matches filenames mentioned near each block against the
// project listing by similarity.
func fuzzyBlocks(d *document) []block {
	var out []block
	pool := d.patchable()
	for i, f := range d.fences {
		if _, skip := ignoredLanguages[f.language()]; skip || d.rejected[i] {
			continue
		}
		names := mentions(prose(d.lines, d.fences, i, proseWindow))
		if p, ok := infoPath(f.info); ok {
			names = append(names, p)
		}
		// Nearest mention first.
		for j := len(names) - 1; j >= 0; j-- {
			if p, ok := bestMatch(names[j], pool, d.opts.FuzzyThreshold); ok {
				out = append(out, block{fence: i, path: p, content: f.content})
				break
			}
		}
	}
	return out
}

const proseWindow = 6

func (d *document) patchable() []string {
	out := make([]string, 0, len(d.files))
	for _, f := range d.files {
		if !domain.InDependencyDir(f) {
			out = append(out, f)
		}
	}
	return out
}

func (d *document) withExtensions(exts []string) []string {
	var out []string
	for _, f := range d.patchable() {
		for _, e := range exts {
			if strings.HasSuffix(f, e) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// narrowByMentions keeps the pool files whose base name is mentioned.
func narrowByMentions(pool, names []string) []string {
	mentioned := map[string]bool{}
	for _, n := range names {
		mentioned[strings.ToLower(baseName(n))] = true
	}
	var out []string
	for _, f := range pool {
		if mentioned[strings.ToLower(baseName(f))] {
			out = append(out, f)
		}
	}
	return out
}

var languageExtensions = map[string][]string{
	"python":     {".py"},
	"py":         {".py"},
	"python3":    {".py"},
	"javascript": {".js", ".mjs", ".cjs"},
	"js":         {".js", ".mjs", ".cjs"},
	"jsx":        {".jsx"},
	"typescript": {".ts"},
	"ts":         {".ts"},
	"tsx":        {".tsx"},
	"rust":       {".rs"},
	"rs":         {".rs"},
	"toml":       {".toml"},
}

var ignoredLanguages = map[string]struct{}{
	"diff": {}, "patch": {}, "bash": {}, "sh": {}, "shell": {}, "console": {},
	"zsh": {}, "text": {}, "txt": {}, "plaintext": {}, "output": {},
}
