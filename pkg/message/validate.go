package message

import (
	"github.com/gofhir/hl7v2/pkg/issue"
	"github.com/gofhir/hl7v2/pkg/location"
	"github.com/gofhir/hl7v2/pkg/structure"
)

// Validate checks that the header is present and first, validates every
// segment's fields, then checks the segment sequence against the structure
// registered for the message type. Validate does not modify the message, so
// repeated calls return identical results.
func (m *Message) Validate() *issue.Result {
	res := issue.NewResult()
	ids := m.IDs()

	switch h := m.Index("MSH"); {
	case h < 0:
		res.AddIssue(issue.New(issue.DiagMessageNoHeader, nil))
	case h > 0:
		res.AddIssue(issue.New(issue.DiagMessageHeaderNotFirst, map[string]any{"id": ids[0]}, ids[0]))
	}

	labels := structure.Labels(ids)
	for i, s := range m.segments {
		res.AddIssues(s.Validate(labels[i]))
	}
	res.AddIssues(m.checkStructure(ids))

	if m.cfg.locations && m.source != "" {
		locate(res.Issues, m.source)
	}
	return res
}

func (m *Message) checkStructure(ids []string) []issue.Issue {
	var out []issue.Issue
	declared := m.Type()
	if m.key.MessageType != "" && declared != m.key.MessageType {
		out = append(out, issue.New(issue.DiagMessageTypeMismatch, map[string]any{
			"declared": declared,
			"expected": m.key.MessageType,
		}, "MSH-9"))
	}
	st, ok := m.Structure()
	if !ok {
		name := m.key.MessageType
		if name == "" {
			name = "(none)"
		}
		return append(out, issue.New(issue.DiagMessageNoStructure, map[string]any{
			"type":    name,
			"version": m.key.Version,
		}))
	}
	if p, ok := m.cfg.policyFor(m.key.MessageType); ok {
		st = st.WithPolicy(p)
	}
	return append(out, st.Check(ids)...)
}

// locate fills in the line and column of addressed issues.
func locate(issues []issue.Issue, source string) {
	for i := range issues {
		iss := &issues[i]
		if iss.Location != nil || len(iss.Address) == 0 {
			continue
		}
		if loc := location.Find(source, iss.Address[0]); loc != nil {
			iss.Location = &issue.Location{Line: loc.Line, Column: loc.Column}
		}
	}
}
