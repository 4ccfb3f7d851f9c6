package interpret

import (
	"regexp"
	"strings"
)

// fence is one fenced code region of a response.
type fence struct {
	info    string
	content string
	// start and end are the line indexes of the opening and closing markers.
	start int
	end   int
}

var fenceOpenRe = regexp.MustCompile("^(\\s*)(`{3,}|~{3,})\\s*(.*)$")

// scanFences finds every closed fenced code region. Unterminated fences
// are dropped: their content is probably truncated.
func scanFences(lines []string) []fence {
	var out []fence
	for i := 0; i < len(lines); i++ {
		m := fenceOpenRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		indent, marker, info := len(m[1]), m[2], strings.TrimSpace(m[3])
		if marker[0] == '`' && strings.Contains(info, "`") {
			continue
		}

		closeAt := -1
		for j := i + 1; j < len(lines); j++ {
			t := strings.TrimSpace(lines[j])
			if len(t) >= len(marker) && strings.Trim(t, marker[:1]) == "" {
				closeAt = j
				break
			}
		}
		if closeAt < 0 {
			break
		}

		body := make([]string, 0, closeAt-i-1)
		for _, l := range lines[i+1 : closeAt] {
			body = append(body, trimIndent(l, indent))
		}
		content := strings.Join(body, "\n")
		if content != "" {
			content += "\n"
		}
		out = append(out, fence{info: info, content: content, start: i, end: closeAt})
		i = closeAt
	}
	return out
}

func trimIndent(line string, n int) string {
	i := 0
	for i < n && i < len(line) && line[i] == ' ' {
		i++
	}
	return line[i:]
}

// precedingLine returns the nearest non-blank line above the fence that
// is not inside an earlier fence, or "" if there is none.
func precedingLine(lines []string, fences []fence, idx int) string {
	floor := 0
	if idx > 0 {
		floor = fences[idx-1].end + 1
	}
	for i := fences[idx].start - 1; i >= floor; i-- {
		if t := strings.TrimSpace(lines[i]); t != "" {
			return t
		}
	}
	return ""
}

// prose returns up to maxLines of text between the previous fence and this one.
func prose(lines []string, fences []fence, idx, maxLines int) []string {
	floor := 0
	if idx > 0 {
		floor = fences[idx-1].end + 1
	}
	from := max(floor, fences[idx].start-maxLines)
	return lines[from:fences[idx].start]
}

// language returns the lower-cased language tag of a fence info string.
func (f fence) language() string {
	info := f.info
	if i := strings.IndexAny(info, " \t:{"); i >= 0 {
		info = info[:i]
	}
	return strings.ToLower(info)
}

func (f fence) blank() bool {
	return strings.TrimSpace(f.content) == ""
}

func splitResponse(response string) []string {
	response = strings.ReplaceAll(response, "\r\n", "\n")
	return strings.Split(response, "\n")
}
