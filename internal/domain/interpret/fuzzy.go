package interpret

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/fatih/camelcase"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// bestMatch returns the project file whose name is most similar to the
// mentioned name, if the similarity reaches threshold. Ties that cannot be
// broken by the mentioned directory are treated as no match.
func bestMatch(mentioned string, pool []string, threshold float64) (string, bool) {
	mentioned = strings.ReplaceAll(strings.TrimSpace(mentioned), "\\", "/")
	want := normalizeName(baseName(mentioned))
	if want == "" {
		return "", false
	}
	dir := strings.ToLower(path.Dir(strings.TrimPrefix(mentioned, "./")))

	var (
		best float64
		ties []string
	)
	for _, f := range pool {
		s := Similarity(want, normalizeName(baseName(f)))
		switch {
		case s > best:
			best, ties = s, []string{f}
		case s == best && s > 0:
			ties = append(ties, f)
		}
	}
	if best < threshold || len(ties) == 0 {
		return "", false
	}
	if len(ties) == 1 {
		return ties[0], true
	}

	if dir != "." && dir != "" {
		var inDir []string
		for _, f := range ties {
			if strings.HasSuffix(strings.ToLower(path.Dir(f)), dir) {
				inDir = append(inDir, f)
			}
		}
		if len(inDir) == 1 {
			return inDir[0], true
		}
	}
	return "", false
}

// normalizeName case-folds a file name and splits camelCase words so that
// "MathUtils.js", "math_utils.js" and "math-utils.js" compare equal.
func normalizeName(name string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	var words []string
	for _, part := range strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	}) {
		for _, w := range camelcase.Split(part) {
			words = append(words, strings.ToLower(w))
		}
	}
	return strings.Join(words, "_") + strings.ToLower(ext)
}

// Similarity is 1 minus the Levenshtein distance between a and b divided
// by the length of the longer string.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	dmp := diffmatchpatch.New()
	dist := dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
	return 1 - float64(dist)/float64(longest)
}

func baseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
