package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func answer(s string) Generator {
	return generatorFunc(func(context.Context, string) (string, error) { return s, nil })
}

func draft(t *testing.T) *diary.Record {
	t.Helper()
	r := diary.NewRecord()
	require.NoError(t, r.Set("date", diary.Text("2024-03-01")))
	require.NoError(t, r.Set("weather", diary.Text("Sunny")))
	require.NoError(t, r.Set("activities", diary.List("Excavation")))
	return r
}

func TestGateway_MergesAnswer(t *testing.T) {
	in := draft(t)
	before := in.Clone()

	gw := NewGateway(answer(`{"project":"Ring Road","weather":null,"activities":["Excavation","Rebar fixing"],"notes":""}`), Config{}, nil)
	out, err := gw.Enhance(context.Background(), in, "raw text")
	require.NoError(t, err)

	assert.Equal(t, "Ring Road", out.TextOf("project"))
	assert.Equal(t, "Sunny", out.TextOf("weather"), "null keeps the draft value")
	assert.Equal(t, []string{"Excavation", "Rebar fixing"}, out.ListOf("activities"))
	assert.Equal(t, "2024-03-01", out.TextOf("date"))
	assert.Empty(t, out.TextOf("notes"))

	assert.True(t, in.Equal(before), "input must not change")
	assert.NotSame(t, in, out)
}

func TestGateway_ToleratesFencesAndProse(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"fenced", "```json\n{\"location\": \"CH 0+200 {north}\"}\n```"},
		{"prose", "Here is the diary:\n{\"location\": \"CH 0+200 {north}\"}\nThanks."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewGateway(answer(tt.answer), Config{}, nil).Enhance(context.Background(), draft(t), "")
			require.NoError(t, err)
			assert.Equal(t, "CH 0+200 {north}", out.TextOf("location"))
		})
	}
}

func TestGateway_IgnoresUnknownKeys(t *testing.T) {
	out, err := NewGateway(answer(`{"mood":"great","contractor":"ACME"}`), Config{}, nil).
		Enhance(context.Background(), draft(t), "")
	require.NoError(t, err)
	assert.Equal(t, "ACME", out.TextOf("contractor"))
	assert.False(t, out.Has("mood"))
}

func TestGateway_AliasesAndShiftFlags(t *testing.T) {
	out, err := NewGateway(answer(`{"engineers_note":"Cubes taken","time_afternoon":true,"time_morning":true}`), Config{}, nil).
		Enhance(context.Background(), draft(t), "")
	require.NoError(t, err)
	assert.Equal(t, "Cubes taken", out.TextOf("notes"))
	assert.Equal(t, []string{"Morning", "Afternoon"}, out.ListOf("shifts"))
}

func TestGateway_DeduplicatesEquipment(t *testing.T) {
	ans := `{"equipment":[
		{"sn":1,"equipment":"Excavator","no":"KBX 123"},
		{"sn":2,"equipment":"Excavator CAT","no":"kbx123"},
		"Roller",
		" roller ",
		{"sn":4,"equipment":"Grader","no":""}
	]}`
	out, err := NewGateway(answer(ans), Config{}, nil).Enhance(context.Background(), draft(t), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Excavator KBX 123", "Roller", "Grader"}, out.ListOf("equipment"))
}

func TestGateway_Errors(t *testing.T) {
	tests := []struct {
		name   string
		gen    Generator
		kind   ErrorKind
		status int
	}{
		{
			name: "transport",
			gen: generatorFunc(func(context.Context, string) (string, error) {
				return "", errors.New("dial tcp: connection refused")
			}),
			kind: KindNetwork,
		},
		{
			name: "status",
			gen: generatorFunc(func(context.Context, string) (string, error) {
				return "", &StatusError{Code: 429, Message: "quota exceeded"}
			}),
			kind:   KindStatus,
			status: 429,
		},
		{name: "not json", gen: answer("I could not read the report."), kind: KindParse},
		{name: "truncated", gen: answer(`{"date": "01-03`), kind: KindParse},
		{name: "wrong shape", gen: answer(`{"date": 5}`), kind: KindParse},
		{name: "list of numbers", gen: answer(`{"activities": [1, 2]}`), kind: KindParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := draft(t)
			before := in.Clone()
			out, err := NewGateway(tt.gen, Config{}, nil).Enhance(context.Background(), in, "")
			require.Nil(t, out)
			var ge *GatewayError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.kind, ge.Kind)
			assert.Equal(t, tt.status, ge.StatusCode)
			assert.True(t, in.Equal(before))
		})
	}
}

func TestGateway_Timeout(t *testing.T) {
	slow := generatorFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := NewGateway(slow, Config{Timeout: 20 * time.Millisecond}, nil).
		Enhance(context.Background(), draft(t), "")
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindNetwork, ge.Kind)
	assert.True(t, IsTimeout(err))
}

func TestGateway_PromptCarriesDraftAndText(t *testing.T) {
	var got string
	gen := generatorFunc(func(_ context.Context, p string) (string, error) {
		got = p
		return `{}`, nil
	})
	_, err := NewGateway(gen, Config{}, nil).Enhance(context.Background(), draft(t), "Weather: Sunny\nPlant: Roller")
	require.NoError(t, err)
	assert.Contains(t, got, `"weather": "Sunny"`)
	assert.Contains(t, got, "Plant: Roller")
	assert.Contains(t, got, "- unsafe_acts (list): Unsafe Acts")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(got), "RESPOND WITH JSON ONLY:"))
}

func TestNoop(t *testing.T) {
	in := draft(t)
	out, err := Noop{}.Enhance(context.Background(), in, "")
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.NotSame(t, in, out)
}

func TestFindFirstJSON(t *testing.T) {
	assert.Equal(t, `{"a":"}"}`, findFirstJSON(`x {"a":"}"} y {"b":1}`))
	assert.Equal(t, "", findFirstJSON("no object"))
	assert.Equal(t, `{"a":{"b":1}}`, findFirstJSON(`{"a":{"b":1}}`))
}
