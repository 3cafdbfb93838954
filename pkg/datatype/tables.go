package datatype

import (
	"sort"

	"github.com/gofhir/hl7v2/pkg/issue"
)

// HL7 tables used to check coded values. Only a small set of user and HL7
// tables is carried; slots naming another table are not checked.
var tables = map[string]map[string]string{
	// Administrative sex
	"0001": {
		"F": "Female", "M": "Male", "O": "Other", "U": "Unknown",
		"A": "Ambiguous", "N": "Not applicable",
	},
	// Patient class
	"0004": {
		"E": "Emergency", "I": "Inpatient", "O": "Outpatient", "P": "Preadmit",
		"R": "Recurring patient", "B": "Obstetrics", "C": "Commercial account",
		"N": "Not applicable", "U": "Unknown",
	},
	// Acknowledgment code
	"0008": {
		"AA": "Application accept", "AE": "Application error", "AR": "Application reject",
		"CA": "Commit accept", "CE": "Commit error", "CR": "Commit reject",
	},
	// Processing ID
	"0103": {
		"D": "Debugging", "P": "Production", "T": "Training",
	},
	// Order control
	"0119": {
		"NW": "New order", "OK": "Order accepted", "UA": "Unable to accept",
		"CA": "Cancel request", "CR": "Canceled as requested", "OC": "Order canceled",
		"DC": "Discontinue request", "DR": "Discontinued as requested", "OD": "Order discontinued",
		"HD": "Hold request", "HR": "On hold as requested", "OH": "Order held",
		"RL": "Release hold", "OR": "Released as requested", "RP": "Replacement order",
		"RU": "Replaced unsolicited", "RO": "Replacement order", "XO": "Change request",
		"XX": "Changed as requested", "XR": "Changed as requested", "SC": "Status changed",
		"SN": "Send number", "SS": "Send status", "RE": "Observations to follow",
		"RF": "Refill", "FU": "Order changed unsolicited", "PA": "Parent order",
		"CH": "Child order", "NA": "Number assigned",
	},
	// Accept/application acknowledgment conditions
	"0155": {
		"AL": "Always", "NE": "Never", "ER": "Error/reject conditions only",
		"SU": "Successful completion only",
	},
	// Route of administration (subset)
	"0162": {
		"PO": "Oral", "IV": "Intravenous", "IM": "Intramuscular", "SC": "Subcutaneous",
		"TOP": "Topical", "INH": "Inhalation", "SL": "Sublingual", "PR": "Rectal",
	},
	// Allergen type
	"0127": {
		"DA": "Drug allergy", "FA": "Food allergy", "MA": "Miscellaneous allergy",
		"MC": "Miscellaneous contraindication", "EA": "Environmental allergy",
		"AA": "Animal allergy", "PA": "Plant allergy", "LA": "Pollen allergy",
	},
	// Allergy severity
	"0128": {
		"SV": "Severe", "MO": "Moderate", "MI": "Mild", "U": "Unknown",
	},
	// Error severity
	"0516": {
		"E": "Error", "W": "Warning", "I": "Information", "F": "Fatal error",
	},
	// Identifier type (subset)
	"0203": {
		"MR": "Medical record number", "PI": "Patient internal identifier",
		"PT": "Patient external identifier", "SS": "Social security number",
		"DL": "Driver's license number", "AN": "Account number", "VN": "Visit number",
		"NPI": "National provider identifier", "PN": "Person number", "HC": "Health card number",
	},
}

// LookupTable returns the description of code in an HL7 table.
// The second result is false when the table is unknown or the code is absent.
func LookupTable(table, code string) (string, bool) {
	t, ok := tables[table]
	if !ok {
		return "", false
	}
	desc, ok := t[code]
	return desc, ok
}

// HasTable reports whether an HL7 table is known.
func HasTable(table string) bool {
	_, ok := tables[table]
	return ok
}

// TableCodes returns the sorted codes of a table.
func TableCodes(table string) []string {
	t := tables[table]
	codes := make([]string, 0, len(t))
	for c := range t {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// checkTable reports a warning when value is not a member of the slot's table.
func checkTable(addr string, spec *Spec, value string) []issue.Issue {
	if spec == nil || spec.Table == "" || value == "" || !HasTable(spec.Table) {
		return nil
	}
	if _, ok := LookupTable(spec.Table, value); ok {
		return nil
	}
	return []issue.Issue{issue.New(issue.DiagFieldNotInTable, map[string]any{
		"value": value,
		"name":  label(addr, spec),
		"table": spec.Table,
	}, addr)}
}
