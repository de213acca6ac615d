package extract

import (
	"regexp"
	"strings"
)

var (
	pageMarkerRe = regexp.MustCompile(`(?i)^(?:-+\s*)?page\s+\d+(?:\s*(?:of|/)\s*\d+)?(?:\s*\(ocr\))?(?:\s*-+)?$`)
	bulletRe     = regexp.MustCompile(`^(?:[-*•·–]\s*|\(?\d{1,3}[.)]\s+|\(?[a-z][.)]\s+)`)
)

// normalizeLine collapses runs of whitespace, including non-breaking spaces,
// into single spaces.
func normalizeLine(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, "’", "'")
	return strings.Join(strings.Fields(s), " ")
}

// textLine is one line of a page. x is its left edge in points, or noX when
// the reader has no layout.
type textLine struct {
	text string
	x    float64
}

const (
	noX = -1.0
	// indentTolerance is how far right of a section label a line must start
	// to count as indented. Less than a list indent, more than jitter.
	indentTolerance = 12.0
)

func (l textLine) indentedFrom(x float64) bool {
	return l.x >= 0 && x >= 0 && l.x > x+indentTolerance
}

// plainLines wraps lines that carry no position.
func plainLines(lines []string) []textLine {
	out := make([]textLine, len(lines))
	for i, ln := range lines {
		out[i] = textLine{text: ln, x: noX}
	}
	return out
}

// cleanLines normalizes every line and drops blanks and page markers.
func cleanLines(lines []textLine) []textLine {
	out := make([]textLine, 0, len(lines))
	for _, ln := range lines {
		ln.text = normalizeLine(ln.text)
		if ln.text == "" || pageMarkerRe.MatchString(ln.text) {
			continue
		}
		out = append(out, ln)
	}
	return out
}

// hasBullet reports whether a line starts with a list marker.
func hasBullet(s string) bool { return bulletRe.MatchString(s) }

// stripBullet removes one leading bullet or item number.
func stripBullet(s string) string {
	return strings.TrimSpace(bulletRe.ReplaceAllString(s, ""))
}

// splitInline splits an inline list value such as "Foreman; 3 labourers".
func splitInline(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if p := stripBullet(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
