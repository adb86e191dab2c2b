package panel

import "strings"

// Section markers requested from the model for two-part explanations.
const (
	EvidenceMarker  = "BIOLOGICAL_EVIDENCE"
	InferenceMarker = "MODEL_INFERENCE"
)

// InferencePlaceholder is shown when the response carries no inference section.
const InferencePlaceholder = "Model inference details pending..."

// Section is one named part of a two-part explanation.
type Section struct {
	Text  string `json:"text"`
	Found bool   `json:"found"`
}

// Sections is a cell-type explanation split into biological evidence and
// model inference.
type Sections struct {
	Evidence  Section `json:"evidence"`
	Inference Section `json:"inference"`
}

// SplitSections splits raw model output on InferenceMarker. Text before the
// marker, with EvidenceMarker removed, is the evidence; text after it is the
// inference. A missing marker yields a not-found inference section carrying
// InferencePlaceholder. Both parts are cleaned.
func SplitSections(raw string) Sections {
	before, after, found := strings.Cut(raw, InferenceMarker)
	evidence := cleanSection(strings.Replace(before, EvidenceMarker, "", 1))

	out := Sections{
		Evidence: Section{Text: evidence, Found: evidence != ""},
	}
	if !found {
		out.Inference = Section{Text: InferencePlaceholder}
		return out
	}
	// Repeated markers are dropped so a model that echoes the tag does not
	// leak it into the rendered text.
	inference := cleanSection(strings.ReplaceAll(after, InferenceMarker, ""))
	out.Inference = Section{Text: inference, Found: true}
	if inference == "" {
		out.Inference = Section{Text: InferencePlaceholder}
	}
	return out
}

// cleanSection cleans a section body and drops the colon models tend to put
// after a section tag ("**BIOLOGICAL_EVIDENCE**: ...").
func cleanSection(s string) string {
	return Clean(strings.TrimPrefix(Clean(s), ":"))
}

// Text renders both sections as one block.
func (s Sections) Text() string {
	return strings.TrimSpace(s.Evidence.Text + "\n\n" + s.Inference.Text)
}
