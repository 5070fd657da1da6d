package diag

// LSP-compatible diagnostic serialization. Positions are 0-based per the
// protocol; internal positions are 1-based.

// LSPPosition is a zero-based line/character pair.
type LSPPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// LSPRange is a half-open source range.
type LSPRange struct {
	Start LSPPosition `json:"start"`
	End   LSPPosition `json:"end"`
}

// LSPLocation pairs a URI with a range.
type LSPLocation struct {
	URI   string   `json:"uri"`
	Range LSPRange `json:"range"`
}

// LSPRelatedInformation carries a related location with its message.
type LSPRelatedInformation struct {
	Location LSPLocation `json:"location"`
	Message  string      `json:"message"`
}

// LSPDiagnostic is the wire form of a Diagnostic.
type LSPDiagnostic struct {
	Severity           int                     `json:"severity"`
	Code               string                  `json:"code,omitempty"`
	Message            string                  `json:"message"`
	Source             string                  `json:"source"`
	Range              LSPRange               `json:"range"`
	RelatedInformation []LSPRelatedInformation `json:"relatedInformation,omitempty"`
}

// ToLSP converts a Diagnostic to its LSP wire form.
func ToLSP(d Diagnostic) LSPDiagnostic {
	out := LSPDiagnostic{
		Severity: int(d.Severity),
		Code:     d.Code,
		Message:  d.Message,
		Source:   "neo-solc",
	}
	if d.Location != nil {
		line := d.Location.Line - 1
		if line < 0 {
			line = 0
		}
		col := d.Location.Column - 1
		if col < 0 {
			col = 0
		}
		out.Range = LSPRange{
			Start: LSPPosition{Line: line, Character: col},
			End:   LSPPosition{Line: line, Character: col + d.Location.Length},
		}
	}
	for _, rel := range d.Related {
		out.RelatedInformation = append(out.RelatedInformation, LSPRelatedInformation{
			Location: LSPLocation{
				URI: rel.File,
				Range: LSPRange{
					Start: LSPPosition{Line: rel.Line - 1, Character: rel.Column - 1},
					End:   LSPPosition{Line: rel.Line - 1, Character: rel.Column - 1 + rel.Length},
				},
			},
			Message: d.Message,
		})
	}
	return out
}

// ToLSPAll converts a diagnostic list to wire form, preserving order.
func ToLSPAll(diags []Diagnostic) []LSPDiagnostic {
	out := make([]LSPDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, ToLSP(d))
	}
	return out
}
