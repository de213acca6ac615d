package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/thywilljoshua/site-diary/internal/diary"
	"github.com/thywilljoshua/site-diary/internal/extract"
)

func testRenderer() *Renderer {
	return New(Config{
		CompanyName:  "Site Supervision",
		CompanyLines: []string{"Resident Engineer's Office"},
		Compress:     true,
	})
}

func fullRecord(t *testing.T) *diary.Record {
	t.Helper()
	r := diary.NewRecord()
	set := func(name string, v diary.Value) { require.NoError(t, r.Set(name, v)) }
	set("project", diary.Text("Ring Road Phase 2"))
	set("employer", diary.Text("City Roads Authority"))
	set("contractor", diary.Text("ACME Builders"))
	set("date", diary.Text("01-03-2024"))
	set("location", diary.Text("CH 0+200 to CH 0+450"))
	set("weather", diary.Text("Sunny/Dry"))
	set("shifts", diary.List("Morning", "Afternoon"))
	set("activities", diary.List("Excavation for culvert", "Rebar fixing at pier 2"))
	set("equipment", diary.List("Excavator KBX 123", "Roller"))
	set("personnel", diary.List("Foreman 1", "Labourers 12"))
	set("unsafe_acts", diary.List("Worker without helmet"))
	set("near_miss", diary.Text("None"))
	set("notes", diary.Text("Concrete cubes taken"))
	set("prepared_by", diary.Text("J. Otieno"))
	set("document_number", diary.Text("RR2-DD-061"))
	set("revision", diary.Text("0"))
	return r
}

func TestRender_RejectsIncompleteRecord(t *testing.T) {
	r := diary.NewRecord()
	b, err := testRenderer().Render(r)
	assert.Nil(t, b)

	var rErr *RenderError
	require.ErrorAs(t, err, &rErr)
	var vErr *diary.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "date", vErr.Problems[0].Field)

	require.NoError(t, r.Set("date", diary.Text("01-03-2024")))
	r.Remove("weather")
	b, err = testRenderer().Render(r)
	assert.Nil(t, b)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "weather", vErr.Problems[0].Field)
}

func TestRender_ProducesPDF(t *testing.T) {
	b, err := testRenderer().Render(fullRecord(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}

func TestRender_RoundTripsThroughExtractor(t *testing.T) {
	tests := []struct {
		name string
		rec  func(t *testing.T) *diary.Record
	}{
		{"full", fullRecord},
		{
			name: "three fields",
			rec: func(t *testing.T) *diary.Record {
				r := diary.NewRecord()
				require.NoError(t, r.Set("date", diary.Text("2024-03-01")))
				require.NoError(t, r.Set("weather", diary.Text("Sunny")))
				require.NoError(t, r.Set("notes", diary.Text("Poured foundation")))
				return r
			},
		},
		{
			name: "list items starting with labels",
			rec: func(t *testing.T) *diary.Record {
				r := diary.NewRecord()
				require.NoError(t, r.Set("date", diary.Text("2024-03-01")))
				require.NoError(t, r.Set("activities", diary.List(
					"Excavation for culvert",
					"Site: clearing at CH 0+300",
					"Plant: grader on standby",
					"Date: 2024-03-02 pour rescheduled",
				)))
				require.NoError(t, r.Set("equipment", diary.List(
					"Time: 07:00 to 17:00 excavator on hire, operator relieved at lunch and the machine refuelled from the bowser before the afternoon shift",
				)))
				return r
			},
		},
	}
	// Shifting the prefix moves every later word to a different wrap position.
	for n := 0; n < 7; n++ {
		notes := strings.Repeat("Concrete cubes taken and ", n) +
			"slab cured with wet hessian. Meeting at 14:00 with the consultant on drainage. " +
			"Site: inspection by the employer at CH 0+300. Weather: dry all day."
		tests = append(tests, struct {
			name string
			rec  func(t *testing.T) *diary.Record
		}{
			name: fmt.Sprintf("wrapped notes %d", n),
			rec: func(t *testing.T) *diary.Record {
				r := fullRecord(t)
				require.NoError(t, r.Set("notes", diary.Text(notes)))
				return r
			},
		})
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.rec(t)
			b, err := testRenderer().Render(want)
			require.NoError(t, err)

			res, err := extract.New(nil).Extract(context.Background(), extract.RawDocument{Name: "diary.pdf", Data: b})
			require.NoError(t, err)
			for _, f := range diary.Schema() {
				w, _ := want.Get(f.Name)
				g, _ := res.Record.Get(f.Name)
				assert.True(t, w.Equal(g), "%s: want %#v got %#v", f.Name, w, g)
			}
			assert.True(t, want.Equal(res.Record))
		})
	}
}

func TestRender_LongListsSpanPages(t *testing.T) {
	r := diary.NewRecord()
	require.NoError(t, r.Set("date", diary.Text("01-03-2024")))
	items := make([]string, 60)
	for i := range items {
		items[i] = fmt.Sprintf("Activity number %d", i+1)
	}
	require.NoError(t, r.Set("activities", diary.List(items...)))

	b, err := testRenderer().Render(r)
	require.NoError(t, err)

	res, err := extract.New(nil).Extract(context.Background(), extract.RawDocument{Data: b})
	require.NoError(t, err)
	assert.Greater(t, res.Pages, 1)
	assert.Equal(t, items, res.Record.ListOf("activities"))
	assert.Equal(t, "01-03-2024", res.Record.TextOf("date"))
}

func TestExportXLSX(t *testing.T) {
	b, err := ExportXLSX(fullRecord(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, len(diary.Schema())+1)
	assert.Equal(t, []string{"Field", "Value"}, rows[0])

	byLabel := map[string]string{}
	for _, row := range rows[1:] {
		v := ""
		if len(row) > 1 {
			v = row[1]
		}
		byLabel[row[0]] = v
	}
	assert.Equal(t, "01-03-2024", byLabel["Date"])
	assert.Equal(t, "Excavator KBX 123\nRoller", byLabel["Equipment"])
	assert.Equal(t, "", byLabel["Consultant"])
}
