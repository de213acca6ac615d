package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

// Patterns for labeled report lines: an optional section number, a short
// label and a colon. A bare line equal to a known label opens that section.
var (
	labelRe      = regexp.MustCompile(`^(?:\d{1,2}[.)]\s*)?([A-Za-z][A-Za-z0-9'/&().\- ]{0,48}?)\s*:\s*(.*)$`)
	headingRe    = regexp.MustCompile(`^(?:\d{1,2}[.)]\s*)?([A-Za-z][A-Za-z0-9'/&().\- ]{0,48}?)\s*$`)
	sectionNumRe = regexp.MustCompile(`^\(?(\d{1,3})[.)]`)
)

// aliasIndex maps a normalized label to its field.
var aliasIndex = func() map[string]diary.FieldSpec {
	m := map[string]diary.FieldSpec{}
	for _, f := range diary.Schema() {
		m[labelKey(f.Label)] = f
		m[labelKey(f.Name)] = f
		for _, a := range f.Aliases {
			m[labelKey(a)] = f
		}
	}
	return m
}()

func labelKey(s string) string {
	s = strings.ToLower(normalizeLine(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

type lineKind int

const (
	lineBody lineKind = iota
	lineKnown
	lineUnknown
)

type classified struct {
	kind    lineKind
	field   diary.FieldSpec
	value   string
	heading bool
}

func classify(ln string) classified {
	if m := labelRe.FindStringSubmatch(ln); m != nil {
		if isClockTime(m[1], m[2]) {
			return classified{kind: lineBody}
		}
		if f, ok := aliasIndex[labelKey(m[1])]; ok {
			return classified{kind: lineKnown, field: f, value: strings.TrimSpace(m[2])}
		}
		if looksLikeSectionLabel(m[1]) && !hasBullet(ln) {
			return classified{kind: lineUnknown}
		}
		return classified{kind: lineBody}
	}
	if m := headingRe.FindStringSubmatch(ln); m != nil {
		if f, ok := aliasIndex[labelKey(m[1])]; ok {
			return classified{kind: lineKnown, field: f, heading: true}
		}
	}
	return classified{kind: lineBody}
}

// isClockTime reports a colon between digits, as in "Meeting at 14:00" or a
// mix ratio, which never ends a label.
func isClockTime(label, value string) bool {
	label = strings.TrimSpace(label)
	if label == "" || value == "" {
		return false
	}
	return isDigit(label[len(label)-1]) && isDigit(value[0])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// leadingNumber returns the section number of "3. Activities:" style lines.
func leadingNumber(ln string) (int, bool) {
	m := sectionNumRe.FindStringSubmatch(ln)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// continues reports whether a line that looks like a label belongs to the
// open section. Wrapped values start right of the line that opened the
// section. Marked list items stay items unless they carry the next section
// number of a numbered report.
func continues(current *diary.FieldSpec, ln textLine, openX float64, openNum int) bool {
	if ln.indentedFrom(openX) {
		return true
	}
	if current.Kind != diary.KindList || !hasBullet(ln.text) {
		return false
	}
	n, ok := leadingNumber(ln.text)
	return !ok || openNum == 0 || n != openNum+1
}

// looksLikeSectionLabel accepts short capitalised labels such as
// "Sign" or "Title" and rejects sentence fragments.
func looksLikeSectionLabel(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" || len(strings.Fields(label)) > 4 {
		return false
	}
	c := label[0]
	return c >= 'A' && c <= 'Z'
}

// parseSections fills rec from cleaned report lines. Lines before the first
// recognised label, and sections with unrecognised labels, are dropped.
// It returns the names of fields that received content.
func parseSections(lines []textLine, rec *diary.Record) []string {
	var (
		current *diary.FieldSpec
		openX   = noX
		openNum int
		seen    = map[string]bool{}
		order   []string
	)
	touch := func(name string) {
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}

	// bulleted is set once the current list section has a marked item;
	// unmarked lines after that continue the previous item.
	bulleted := false
	for _, ln := range lines {
		c := classify(ln.text)
		if current != nil && c.kind != lineBody && continues(current, ln, openX, openNum) {
			c = classified{kind: lineBody}
		}
		switch c.kind {
		case lineKnown:
			f := c.field
			current = &f
			openX = ln.x
			openNum, _ = leadingNumber(ln.text)
			bulleted = false
			if c.value != "" {
				appendValue(rec, f, c.value, true)
				touch(f.Name)
			}
		case lineUnknown:
			current = nil
		default:
			if current == nil {
				continue
			}
			if current.Kind == diary.KindList {
				if hasBullet(ln.text) {
					bulleted = true
				} else if bulleted {
					continueItem(rec, current.Name, ln.text)
					continue
				}
			}
			appendValue(rec, *current, ln.text, false)
			touch(current.Name)
		}
	}
	return order
}

func appendValue(rec *diary.Record, f diary.FieldSpec, s string, inline bool) {
	v, _ := rec.Get(f.Name)
	switch f.Kind {
	case diary.KindList:
		var items []string
		if inline {
			items = splitInline(s)
		} else if it := stripBullet(s); it != "" {
			items = []string{it}
		}
		v.List = append(v.List, items...)
		_ = rec.Set(f.Name, diary.List(v.List...))
	default:
		if v.Text != "" {
			s = v.Text + " " + s
		}
		_ = rec.Set(f.Name, diary.Text(s))
	}
}

// continueItem appends a wrapped line to the last item of a list field.
func continueItem(rec *diary.Record, name, s string) {
	items := rec.ListOf(name)
	if len(items) == 0 {
		_ = rec.Set(name, diary.List(s))
		return
	}
	items[len(items)-1] += " " + s
	_ = rec.Set(name, diary.List(items...))
}
