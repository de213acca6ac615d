// Package diary defines the structured daily diary record shared by every
// stage of the converter: the fixed field schema, the Record type and its
// validation rules.
package diary

import "strings"

// Kind is the value shape of a field.
type Kind int

const (
	KindText Kind = iota
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// FieldSpec describes one named field of the diary.
type FieldSpec struct {
	Name  string
	Label string
	Kind  Kind
	// Mandatory fields must be non-empty before a diary can be rendered.
	Mandatory bool
	// Aliases are alternative section labels seen in site reports.
	Aliases []string
}

var schema = []FieldSpec{
	{Name: "project", Label: "Project", Kind: KindText, Aliases: []string{"Project Name", "Contract"}},
	{Name: "employer", Label: "Employer", Kind: KindText, Aliases: []string{"Client", "Owner"}},
	{Name: "consultant", Label: "Consultant", Kind: KindText},
	{Name: "contractor", Label: "Contractor", Kind: KindText},
	{Name: "date", Label: "Date", Kind: KindText, Mandatory: true, Aliases: []string{"Report Date", "Diary Date"}},
	{Name: "location", Label: "Location", Kind: KindText, Aliases: []string{"Site", "Site Location", "Chainage"}},
	{Name: "weather", Label: "Weather", Kind: KindText, Aliases: []string{"Weather Condition", "Weather Conditions"}},
	{Name: "shifts", Label: "Shifts", Kind: KindList, Aliases: []string{"Shift", "Time"}},
	{Name: "activities", Label: "Activities", Kind: KindList, Aliases: []string{"Major Activities", "Work Activities", "Works", "Activity"}},
	{Name: "equipment", Label: "Equipment", Kind: KindList, Aliases: []string{"Plant", "Contractor's Equipment", "Machinery"}},
	{Name: "personnel", Label: "Personnel", Kind: KindList, Aliases: []string{"Manpower", "Labour", "Labor", "Contractor's Personnel", "Staff"}},
	{Name: "materials", Label: "Materials", Kind: KindList, Aliases: []string{"Material", "Materials Used", "Materials Delivered"}},
	{Name: "unsafe_acts", Label: "Unsafe Acts", Kind: KindList, Aliases: []string{"Unsafe Acts / Conditions", "Unsafe Conditions", "Safety Observations"}},
	{Name: "near_miss", Label: "Near Miss", Kind: KindText, Aliases: []string{"Near Miss/Accidents/Incidents", "Incidents", "Accidents"}},
	{Name: "obstruction", Label: "Obstruction", Kind: KindText, Aliases: []string{"Obstruction/Action Plans", "Delays", "Obstructions"}},
	{Name: "notes", Label: "Notes", Kind: KindText, Aliases: []string{"Engineer's Note", "Engineers Note", "Remarks", "Comments"}},
	{Name: "prepared_by", Label: "Prepared By", Kind: KindText},
	{Name: "checked_by", Label: "Checked By", Kind: KindText},
	{Name: "approved_by", Label: "Approved By", Kind: KindText},
	{Name: "document_number", Label: "Document No", Kind: KindText, Aliases: []string{"Document Number", "Doc No", "Ref"}},
	{Name: "revision", Label: "Revision", Kind: KindText, Aliases: []string{"Rev"}},
}

var byName = func() map[string]int {
	m := make(map[string]int, len(schema))
	for i, f := range schema {
		m[f.Name] = i
	}
	return m
}()

// Schema returns the field specs in template order.
func Schema() []FieldSpec {
	out := make([]FieldSpec, len(schema))
	copy(out, schema)
	return out
}

// FieldNames returns the field names in template order.
func FieldNames() []string {
	out := make([]string, len(schema))
	for i, f := range schema {
		out[i] = f.Name
	}
	return out
}

// Lookup finds a field spec by name. Names are case-insensitive and accept
// spaces or dashes in place of underscores.
func Lookup(name string) (FieldSpec, bool) {
	i, ok := byName[normalizeName(name)]
	if !ok {
		return FieldSpec{}, false
	}
	return schema[i], true
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	return strings.ReplaceAll(name, " ", "_")
}
