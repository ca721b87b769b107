package interpret

import "strings"

// corpus is the working state of one extraction: the whole capture collapsed
// onto a single line for pattern matching, plus the original non-empty lines
// in order for proximity lookups.
type corpus struct {
	text  string
	lines []string
}

// normalizeText trims every line, drops blank ones and joins the rest with a
// single space. No other content is removed.
func normalizeText(raw string) corpus {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return corpus{text: strings.Join(lines, " "), lines: lines}
}

func (c corpus) empty() bool { return c.text == "" }
