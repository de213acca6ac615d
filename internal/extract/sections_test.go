package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

func TestParseSections(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		check func(t *testing.T, r *diary.Record)
	}{
		{
			name:  "case insensitive label",
			lines: []string{"WEATHER: Overcast"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, "Overcast", r.TextOf("weather"))
			},
		},
		{
			name:  "heading opens section",
			lines: []string{"Plant", "Grader", "Water bowser"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, []string{"Grader", "Water bowser"}, r.ListOf("equipment"))
			},
		},
		{
			name:  "repeated label appends",
			lines: []string{"Activities: Survey", "Notes: n/a", "Activities: Setting out"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, []string{"Survey", "Setting out"}, r.ListOf("activities"))
			},
		},
		{
			name:  "value containing colon",
			lines: []string{"Notes: Check: cubes at 7 days"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, "Check: cubes at 7 days", r.TextOf("notes"))
			},
		},
		{
			name:  "numbered item equal to a label stays in list",
			lines: []string{"Activities:", "1. Survey", "2. Works"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, []string{"Survey", "Works"}, r.ListOf("activities"))
			},
		},
		{
			name:  "wrapped item continues",
			lines: []string{"Activities:", "1. Blinding concrete to pile caps", "P12 to P15", "2. Survey"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, []string{"Blinding concrete to pile caps P12 to P15", "Survey"}, r.ListOf("activities"))
			},
		},
		{
			name:  "preamble dropped",
			lines: []string{"ACME Contractors Ltd", "Date: 01-03-2024"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, "01-03-2024", r.TextOf("date"))
				assert.Empty(t, r.TextOf("project"))
			},
		},
		{
			name:  "unknown label closes section",
			lines: []string{"Weather: Hot", "Temperature: 38C", "afternoon breeze"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, "Hot", r.TextOf("weather"))
			},
		},
		{
			name:  "clock time is not a label",
			lines: []string{"Notes: Slab cured with wet hessian", "Meeting at 14:00 with the consultant"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, "Slab cured with wet hessian Meeting at 14:00 with the consultant", r.TextOf("notes"))
			},
		},
		{
			name:  "marked item starting with a label stays in list",
			lines: []string{"Activities:", "1. Excavation for culvert", "2. Site: clearing at CH 0+300", "- Time: 2 hours lost"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, []string{"Excavation for culvert", "Site: clearing at CH 0+300", "Time: 2 hours lost"}, r.ListOf("activities"))
				assert.Empty(t, r.TextOf("location"))
				assert.Empty(t, r.ListOf("shifts"))
			},
		},
		{
			name:  "next section number ends a list",
			lines: []string{"3. Activities:", "1. Survey", "4. Equipment: Grader"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, []string{"Survey"}, r.ListOf("activities"))
				assert.Equal(t, []string{"Grader"}, r.ListOf("equipment"))
			},
		},
		{
			name:  "empty inline value with items below",
			lines: []string{"Unsafe Acts:", "a) No harness at height"},
			check: func(t *testing.T, r *diary.Record) {
				assert.Equal(t, []string{"No harness at height"}, r.ListOf("unsafe_acts"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := diary.NewRecord()
			parseSections(cleanLines(plainLines(tt.lines)), rec)
			tt.check(t, rec)
		})
	}
}

func TestParseSections_IndentedLinesContinue(t *testing.T) {
	lines := []textLine{
		{text: "Notes: Concrete cubes taken and", x: 42.5},
		{text: "Meeting at 14:00 with the consultant", x: 161.6},
		{text: "Site: visit by the employer", x: 161.6},
		{text: "Activities:", x: 42.5},
		{text: "1. Excavation for culvert", x: 59.5},
		{text: "2. Blinding to pile caps", x: 59.5},
		{text: "Date: 14 March", x: 59.5},
		{text: "Weather: Sunny", x: 42.5},
		{text: "Signature: Signature: Signature:", x: 48.2},
		{text: "stray footer", x: 48.2},
	}
	rec := diary.NewRecord()
	parseSections(lines, rec)

	assert.Equal(t, "Concrete cubes taken and Meeting at 14:00 with the consultant Site: visit by the employer", rec.TextOf("notes"))
	assert.Equal(t, []string{"Excavation for culvert", "Blinding to pile caps Date: 14 March"}, rec.ListOf("activities"))
	assert.Empty(t, rec.TextOf("location"))
	assert.Empty(t, rec.TextOf("date"))
	assert.Equal(t, "Sunny", rec.TextOf("weather"))
}

func TestCleanLines(t *testing.T) {
	got := cleanLines([]textLine{
		{text: "  Date:  2024-03-01 ", x: 40},
		{text: "", x: 40},
		{text: "Page 2 of 3", x: noX},
		{text: "--- Page 4 ---", x: noX},
		{text: "Engineer’s Note: ok", x: 40},
	})
	assert.Equal(t, []textLine{{text: "Date: 2024-03-01", x: 40}, {text: "Engineer's Note: ok", x: 40}}, got)
}

func TestGroupLines(t *testing.T) {
	runs := []run{
		{x: 200, y: 700, size: 11, text: "Sunny"},
		{x: 50, y: 700.4, size: 11, text: "Weather:"},
		{x: 50, y: 720, size: 11, text: "Date: 2024-03-01"},
	}
	assert.Equal(t, []textLine{
		{text: "Date: 2024-03-01", x: 50},
		{text: "Weather: Sunny", x: 50},
	}, groupLines(runs))
}

func TestSplitInline(t *testing.T) {
	assert.Equal(t, []string{"Foreman", "3 labourers"}, splitInline("Foreman; 3 labourers;"))
	assert.Nil(t, splitInline(" ; "))
}
