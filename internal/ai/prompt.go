package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

const promptHeader = `You are a data extraction specialist for construction site reports.
Correct and complete the DRAFT daily diary using the SITE REPORT TEXT.
Return ONLY a JSON object, no markdown code blocks, no explanations.`

const promptRules = `RULES:
- Use exactly the keys of the draft. Do not invent new keys.
- Text fields are strings. List fields are arrays of strings, one item per entry.
- If the report gives no information for a field, use null.
- Keep the report's own wording and terminology. Keep normal word spacing.
- Write dates as they appear in the report; prefer DD-MM-YYYY when unclear.
- Do not repeat the same equipment item twice.`

// buildPrompt renders the request sent to the model.
func buildPrompt(rec *diary.Record, rawText string) (string, error) {
	draft, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal draft: %w", err)
	}

	var fields strings.Builder
	for _, f := range diary.Schema() {
		fmt.Fprintf(&fields, "- %s (%s): %s\n", f.Name, f.Kind, f.Label)
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nFIELDS:\n")
	b.WriteString(fields.String())
	b.WriteString("\nDRAFT:\n")
	b.Write(draft)
	b.WriteString("\n\nSITE REPORT TEXT:\n")
	b.WriteString(strings.TrimSpace(rawText))
	b.WriteString("\n\n")
	b.WriteString(promptRules)
	b.WriteString("\n\nRESPOND WITH JSON ONLY:\n")
	return b.String(), nil
}
