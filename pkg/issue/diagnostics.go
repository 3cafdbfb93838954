package issue

import (
	"fmt"
	"strings"
)

// DiagnosticID identifies a specific diagnostic message.
type DiagnosticID string

// Diagnostic IDs for field validation.
const (
	DiagFieldRequired      DiagnosticID = "FIELD_REQUIRED"
	DiagFieldTooLong       DiagnosticID = "FIELD_TOO_LONG"
	DiagFieldInvalidFormat DiagnosticID = "FIELD_INVALID_FORMAT"
	DiagFieldNotInTable    DiagnosticID = "FIELD_NOT_IN_TABLE"
	DiagFieldNotRepeatable DiagnosticID = "FIELD_NOT_REPEATABLE"
	DiagFieldOutOfRange    DiagnosticID = "FIELD_OUT_OF_RANGE"
)

// Diagnostic IDs for segment validation.
const (
	DiagSegmentInvalidID   DiagnosticID = "SEGMENT_INVALID_ID"
	DiagSegmentExtraFields DiagnosticID = "SEGMENT_EXTRA_FIELDS"
	DiagSegmentUnknown     DiagnosticID = "SEGMENT_UNKNOWN"
)

// Diagnostic IDs for message structure validation.
const (
	DiagMessageNoHeader        DiagnosticID = "MESSAGE_NO_HEADER"
	DiagMessageHeaderNotFirst  DiagnosticID = "MESSAGE_HEADER_NOT_FIRST"
	DiagMessageSegmentMissing  DiagnosticID = "MESSAGE_SEGMENT_MISSING"
	DiagMessageSegmentOrder    DiagnosticID = "MESSAGE_SEGMENT_ORDER"
	DiagMessageSegmentRepeated DiagnosticID = "MESSAGE_SEGMENT_REPEATED"
	DiagMessageUnexpected      DiagnosticID = "MESSAGE_SEGMENT_UNEXPECTED"
	DiagMessageNoStructure     DiagnosticID = "MESSAGE_NO_STRUCTURE"
	DiagMessageTypeMismatch    DiagnosticID = "MESSAGE_TYPE_MISMATCH"
)

// Diagnostic IDs for conformance rules.
const (
	DiagRuleFailed       DiagnosticID = "RULE_FAILED"
	DiagRuleCompileError DiagnosticID = "RULE_COMPILE_ERROR"
	DiagRuleEvalError    DiagnosticID = "RULE_EVAL_ERROR"
)

// entry is the default severity, code and text of a diagnostic. Texts use
// {name} placeholders.
type entry struct {
	severity Severity
	code     Code
	text     string
}

var catalog = map[DiagnosticID]entry{
	// Fields
	DiagFieldRequired:      {SeverityError, CodeRequired, "Required field '{name}' is empty"},
	DiagFieldTooLong:       {SeverityError, CodeTooLong, "Field '{name}' has length {length}, maximum is {max}"},
	DiagFieldInvalidFormat: {SeverityError, CodeValue, "Field '{name}' is not a valid {type}: {error}"},
	DiagFieldNotInTable:    {SeverityWarning, CodeCodeInvalid, "Value '{value}' of field '{name}' is not in HL7 table {table}"},
	DiagFieldNotRepeatable: {SeverityError, CodeStructure, "Field '{name}' does not repeat but has {count} repetitions"},
	DiagFieldOutOfRange:    {SeverityError, CodeRange, "Field '{name}' is out of range: {detail}"},

	// Segments
	DiagSegmentInvalidID:   {SeverityError, CodeStructure, "Segment identifier '{id}' is not three alphanumeric characters"},
	DiagSegmentExtraFields: {SeverityInformation, CodeInformation, "Segment {id} has {count} field(s) beyond its schema, kept verbatim"},
	DiagSegmentUnknown:     {SeverityInformation, CodeInformation, "No schema registered for segment {id}, fields kept verbatim"},

	// Message structure
	DiagMessageNoHeader:        {SeverityError, CodeStructure, "Message has no MSH header segment"},
	DiagMessageHeaderNotFirst:  {SeverityError, CodeStructure, "MSH header must be the first segment, found {id}"},
	DiagMessageSegmentMissing:  {SeverityError, CodeRequired, "Required segment {id} is missing from {structure}"},
	DiagMessageSegmentOrder:    {SeverityError, CodeOrder, "Segment {id} is out of order for {structure}"},
	DiagMessageSegmentRepeated: {SeverityError, CodeStructure, "Segment {id} does not repeat in {structure}"},
	DiagMessageUnexpected:      {SeverityWarning, CodeUnexpected, "Segment {id} is not part of {structure}"},
	DiagMessageNoStructure:     {SeverityInformation, CodeNotSupported, "No structure registered for {type} (version {version}); structural checks skipped"},
	DiagMessageTypeMismatch:    {SeverityError, CodeValue, "MSH-9 declares {declared} but message was built as {expected}"},

	// Rules
	DiagRuleFailed:       {SeverityError, CodeInvariant, "{details}"},
	DiagRuleCompileError: {SeverityWarning, CodeProcessing, "Could not compile rule '{key}': {error}"},
	DiagRuleEvalError:    {SeverityWarning, CodeProcessing, "Could not evaluate rule '{key}': {error}"},
}

// Describe returns the default severity and code of id.
func Describe(id DiagnosticID) (Severity, Code, bool) {
	e, ok := catalog[id]
	return e.severity, e.code, ok
}

// Text renders the text of id with params. Unknown ids render as the id.
func Text(id DiagnosticID, params map[string]any) string {
	e, ok := catalog[id]
	if !ok {
		return string(id)
	}
	return render(e.text, params)
}

// New builds an issue from the catalog. Unknown ids yield a processing
// error carrying the id as text.
func New(id DiagnosticID, params map[string]any, address ...string) Issue {
	e, ok := catalog[id]
	if !ok {
		e = entry{severity: SeverityError, code: CodeProcessing, text: string(id)}
	}
	return Issue{
		Severity:    e.severity,
		Code:        e.code,
		Diagnostics: render(e.text, params),
		Address:     address,
		MessageID:   string(id),
	}
}

// NewWithSeverity is New with the severity replaced.
func NewWithSeverity(id DiagnosticID, severity Severity, params map[string]any, address ...string) Issue {
	iss := New(id, params, address...)
	iss.Severity = severity
	return iss
}

func render(text string, params map[string]any) string {
	if len(params) == 0 {
		return text
	}
	pairs := make([]string, 0, 2*len(params))
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
