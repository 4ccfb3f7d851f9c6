package interpret

import (
	"regexp"
	"strings"
)

var (
	markerRe     = regexp.MustCompile(`^(?:#{1,6}\s+)?[*_]{0,2}\s*FILE:\s*(.+?)\s*[*_]{0,2}$`)
	fileLabelRe  = regexp.MustCompile(`(?i)^\W*(?:file|path|filename)\W`)
	headingRe    = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	emphasisRe   = regexp.MustCompile(`^(?:\*\*|__)(.+?)(?:\*\*|__):?$`)
	codeSpanRe   = regexp.MustCompile("`([^`]+)`")
	pathTokenRe  = regexp.MustCompile(`(?:[\w.\-]+[/\\])*[\w.\-]*\w\.[A-Za-z][A-Za-z0-9]{0,7}\b`)
	titleAttrRe  = regexp.MustCompile(`(?:title|file|filename)\s*=\s*"([^"]+)"`)
	maxHeaderLen = 160
)

// markerPath extracts the path from a "FILE: <path>" line.
func markerPath(line string) (string, bool) {
	m := markerRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	p := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*`'\""))
	return p, p != ""
}

// headerPath extracts a filename from a line that introduces a code
// block: a markdown heading, an emphasized or code-span line, or a short
// sentence ending in a colon.
func headerPath(line string) (string, bool) {
	if len(line) > maxHeaderLen {
		return "", false
	}
	switch {
	case headingRe.MatchString(line):
		return firstPath(headingRe.FindStringSubmatch(line)[1])
	case emphasisRe.MatchString(line):
		return firstPath(emphasisRe.FindStringSubmatch(line)[1])
	case strings.HasPrefix(line, "`") && strings.HasSuffix(strings.TrimSuffix(line, ":"), "`"):
		return firstPath(line)
	case strings.HasSuffix(line, ":") && len(strings.Fields(line)) <= 12:
		return firstPath(line)
	case fileLabelRe.MatchString(line) && len(strings.Fields(line)) <= 4:
		return firstPath(line)
	}
	return "", false
}

// infoPath extracts a filename from a fence info string such as
// "python app.py", "py title=\"app.py\"" or "rust:src/lib.rs".
func infoPath(info string) (string, bool) {
	if m := titleAttrRe.FindStringSubmatch(info); m != nil {
		return m[1], true
	}
	fields := strings.FieldsFunc(info, func(r rune) bool { return r == ' ' || r == '\t' || r == ':' })
	for i, f := range fields {
		if i == 0 && !strings.Contains(f, ".") {
			continue
		}
		if p, ok := firstPath(f); ok {
			return p, true
		}
	}
	return "", false
}

// firstPath returns the first path-like token in s, preferring tokens
// inside code spans.
func firstPath(s string) (string, bool) {
	for _, m := range codeSpanRe.FindAllStringSubmatch(s, -1) {
		if p := pathTokenRe.FindString(m[1]); p != "" && looksLikePath(p) {
			return p, true
		}
	}
	for _, p := range pathTokenRe.FindAllString(s, -1) {
		if looksLikePath(p) {
			return p, true
		}
	}
	return "", false
}

// mentions returns every path-like token in the given lines, in order.
func mentions(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.Contains(l, "://") {
			l = stripURLs(l)
		}
		for _, p := range pathTokenRe.FindAllString(l, -1) {
			if looksLikePath(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

var urlRe = regexp.MustCompile(`\w+://\S+`)

func stripURLs(s string) string {
	return urlRe.ReplaceAllString(s, " ")
}

// looksLikePath filters out tokens such as "e.g" or "i.e" and method calls.
func looksLikePath(p string) bool {
	ext := p[strings.LastIndexByte(p, '.')+1:]
	if _, ok := knownExtensions[strings.ToLower(ext)]; ok {
		return true
	}
	return strings.ContainsAny(p, "/\\")
}

var knownExtensions = map[string]struct{}{
	"py": {}, "pyi": {}, "js": {}, "mjs": {}, "cjs": {}, "jsx": {}, "ts": {}, "tsx": {},
	"rs": {}, "toml": {}, "json": {}, "yaml": {}, "yml": {}, "cfg": {}, "ini": {},
	"txt": {}, "md": {}, "go": {}, "html": {}, "css": {}, "sh": {},
}
