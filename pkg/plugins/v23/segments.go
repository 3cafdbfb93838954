package v23

import (
	"github.com/gofhir/hl7v2/pkg/datatype"
	"github.com/gofhir/hl7v2/pkg/segment"
)

// Shorthands for the schema tables below.
var (
	f   = segment.F
	req = segment.R
	rep = segment.Rep
	tbl = segment.T
)

// MSH is the v2.3 message header.
var MSH = &segment.Schema{
	ID:   "MSH",
	Name: "Message Header",
	Fields: []datatype.Spec{
		req(f("Field Separator", "ST", 1)),
		req(f("Encoding Characters", "ST", 4)),
		f("Sending Application", "HD", 180),
		f("Sending Facility", "HD", 180),
		f("Receiving Application", "HD", 180),
		f("Receiving Facility", "HD", 180),
		f("Date/Time of Message", "TS", 26),
		f("Security", "ST", 40),
		req(f("Message Type", "CM_MSG", 15)),
		req(f("Message Control ID", "ST", 20)),
		req(tbl(f("Processing ID", "PT", 3), "0103")),
		req(f("Version ID", "ID", 8)),
		f("Sequence Number", "NM", 15),
		f("Continuation Pointer", "ST", 180),
		tbl(f("Accept Acknowledgment Type", "ID", 2), "0155"),
		tbl(f("Application Acknowledgment Type", "ID", 2), "0155"),
		f("Country Code", "ID", 2),
		f("Character Set", "ID", 6),
		f("Principal Language of Message", "CE", 60),
	},
}

// EVN is the v2.3 event type segment.
var EVN = &segment.Schema{
	ID:   "EVN",
	Name: "Event Type",
	Fields: []datatype.Spec{
		req(f("Event Type Code", "ID", 3)),
		req(f("Recorded Date/Time", "TS", 26)),
		f("Date/Time Planned Event", "TS", 26),
		f("Event Reason Code", "IS", 3),
		f("Operator ID", "XCN", 60),
		f("Event Occurred", "TS", 26),
	},
}

// PID is the v2.3 patient identification segment.
var PID = &segment.Schema{
	ID:   "PID",
	Name: "Patient Identification",
	Fields: []datatype.Spec{
		f("Set ID", "SI", 4),
		f("Patient ID (External ID)", "CX", 20),
		req(rep(f("Patient Identifier List", "CX", 20))),
		rep(f("Alternate Patient ID", "CX", 20)),
		req(rep(f("Patient Name", "XPN", 48))),
		f("Mother's Maiden Name", "XPN", 48),
		f("Date/Time of Birth", "TS", 26),
		tbl(f("Sex", "IS", 1), "0001"),
		rep(f("Patient Alias", "XPN", 48)),
		f("Race", "IS", 1),
		rep(f("Patient Address", "XAD", 106)),
		f("County Code", "IS", 4),
		rep(f("Phone Number - Home", "XTN", 40)),
		rep(f("Phone Number - Business", "XTN", 40)),
		f("Primary Language", "CE", 60),
		f("Marital Status", "IS", 1),
		f("Religion", "IS", 3),
		f("Patient Account Number", "CX", 20),
		f("SSN Number - Patient", "ST", 16),
		f("Driver's License Number", "DLN", 25),
		rep(f("Mother's Identifier", "CX", 20)),
		f("Ethnic Group", "IS", 3),
		f("Birth Place", "ST", 60),
		f("Multiple Birth Indicator", "ID", 2),
		f("Birth Order", "NM", 2),
		rep(f("Citizenship", "IS", 4)),
		f("Veterans Military Status", "CE", 60),
		f("Nationality", "CE", 80),
		f("Patient Death Date and Time", "TS", 26),
		f("Patient Death Indicator", "ID", 1),
	},
}

// PV1 is the v2.3 patient visit segment.
var PV1 = &segment.Schema{
	ID:   "PV1",
	Name: "Patient Visit",
	Fields: []datatype.Spec{
		f("Set ID", "SI", 4),
		req(tbl(f("Patient Class", "IS", 1), "0004")),
		f("Assigned Patient Location", "PL", 80),
		f("Admission Type", "IS", 2),
		f("Preadmit Number", "CX", 20),
		f("Prior Patient Location", "PL", 80),
		rep(f("Attending Doctor", "XCN", 60)),
		rep(f("Referring Doctor", "XCN", 60)),
		rep(f("Consulting Doctor", "XCN", 60)),
		f("Hospital Service", "IS", 3),
		f("Temporary Location", "PL", 80),
		f("Preadmit Test Indicator", "IS", 2),
		f("Readmission Indicator", "IS", 2),
		f("Admit Source", "IS", 3),
		rep(f("Ambulatory Status", "IS", 2)),
		f("VIP Indicator", "IS", 2),
		rep(f("Admitting Doctor", "XCN", 60)),
		f("Patient Type", "IS", 2),
		f("Visit Number", "CX", 20),
		rep(f("Financial Class", "FC", 50)),
		f("Charge Price Indicator", "IS", 2),
		f("Courtesy Code", "IS", 2),
		f("Credit Rating", "IS", 2),
		rep(f("Contract Code", "IS", 2)),
		rep(f("Contract Effective Date", "DT", 8)),
		rep(f("Contract Amount", "NM", 12)),
		rep(f("Contract Period", "NM", 3)),
		f("Interest Code", "IS", 2),
		f("Transfer to Bad Debt Code", "IS", 1),
		f("Transfer to Bad Debt Date", "DT", 8),
		f("Bad Debt Agency Code", "IS", 10),
		f("Bad Debt Transfer Amount", "NM", 12),
		f("Bad Debt Recovery Amount", "NM", 12),
		f("Delete Account Indicator", "IS", 1),
		f("Delete Account Date", "DT", 8),
		f("Discharge Disposition", "IS", 3),
		f("Discharged to Location", "CM_DLD", 25),
		f("Diet Type", "IS", 2),
		f("Servicing Facility", "IS", 2),
		f("Bed Status", "IS", 1),
		f("Account Status", "IS", 2),
		f("Pending Location", "PL", 80),
		f("Prior Temporary Location", "PL", 80),
		f("Admit Date/Time", "TS", 26),
		f("Discharge Date/Time", "TS", 26),
		f("Current Patient Balance", "NM", 12),
		f("Total Charges", "NM", 12),
		f("Total Adjustments", "NM", 12),
		f("Total Payments", "NM", 12),
		f("Alternate Visit ID", "CX", 20),
		f("Visit Indicator", "IS", 1),
		rep(f("Other Healthcare Provider", "XCN", 60)),
	},
}

// NK1 is the v2.3 next of kin segment.
var NK1 = &segment.Schema{
	ID:   "NK1",
	Name: "Next of Kin / Associated Parties",
	Fields: []datatype.Spec{
		req(f("Set ID", "SI", 4)),
		rep(f("Name", "XPN", 48)),
		f("Relationship", "CE", 60),
		rep(f("Address", "XAD", 106)),
		rep(f("Phone Number", "XTN", 40)),
		rep(f("Business Phone Number", "XTN", 40)),
		f("Contact Role", "CE", 60),
		f("Start Date", "DT", 8),
		f("End Date", "DT", 8),
		f("Next of Kin / Associated Parties Job Title", "ST", 60),
		f("Next of Kin / Associated Parties Job Code/Class", "JCC", 20),
		f("Next of Kin / Associated Parties Employee Number", "CX", 20),
		rep(f("Organization Name", "XON", 60)),
		f("Marital Status", "IS", 1),
		tbl(f("Sex", "IS", 1), "0001"),
		f("Date/Time of Birth", "TS", 26),
	},
}

// AL1 is the v2.3 patient allergy segment.
var AL1 = &segment.Schema{
	ID:   "AL1",
	Name: "Patient Allergy Information",
	Fields: []datatype.Spec{
		req(f("Set ID", "SI", 4)),
		tbl(f("Allergy Type", "IS", 2), "0127"),
		req(f("Allergy Code/Mnemonic/Description", "CE", 60)),
		tbl(f("Allergy Severity", "IS", 2), "0128"),
		rep(f("Allergy Reaction", "ST", 15)),
		f("Identification Date", "DT", 8),
	},
}

// ORC is the v2.3 common order segment.
var ORC = &segment.Schema{
	ID:   "ORC",
	Name: "Common Order",
	Fields: []datatype.Spec{
		req(tbl(f("Order Control", "ID", 2), "0119")),
		f("Placer Order Number", "EI", 22),
		f("Filler Order Number", "EI", 22),
		f("Placer Group Number", "EI", 22),
		f("Order Status", "ID", 2),
		f("Response Flag", "ID", 1),
		f("Quantity/Timing", "TQ", 200),
		f("Parent", "CM_EIP", 200),
		f("Date/Time of Transaction", "TS", 26),
		f("Entered By", "XCN", 120),
		f("Verified By", "XCN", 120),
		rep(f("Ordering Provider", "XCN", 120)),
		f("Enterer's Location", "PL", 80),
		rep(f("Call Back Phone Number", "XTN", 40)),
		f("Order Effective Date/Time", "TS", 26),
		f("Order Control Code Reason", "CE", 200),
		f("Entering Organization", "CE", 60),
		f("Entering Device", "CE", 60),
		f("Action By", "XCN", 120),
	},
}

// RXE is the v2.3 pharmacy/treatment encoded order segment.
var RXE = &segment.Schema{
	ID:   "RXE",
	Name: "Pharmacy/Treatment Encoded Order",
	Fields: []datatype.Spec{
		f("Quantity/Timing", "TQ", 200),
		req(f("Give Code", "CE", 100)),
		req(f("Give Amount - Minimum", "NM", 20)),
		f("Give Amount - Maximum", "NM", 20),
		f("Give Units", "CE", 60),
		f("Give Dosage Form", "CE", 60),
		rep(f("Provider's Administration Instructions", "CE", 200)),
		f("Deliver-to Location", "CM_LA1", 200),
		f("Substitution Status", "ID", 1),
		f("Dispense Amount", "NM", 20),
		f("Dispense Units", "CE", 60),
		f("Number of Refills", "NM", 3),
		f("Ordering Provider's DEA Number", "XCN", 60),
		f("Pharmacist/Treatment Supplier's Verifier ID", "XCN", 60),
		f("Prescription Number", "ST", 20),
		f("Number of Refills Remaining", "NM", 20),
		f("Number of Refills/Doses Dispensed", "NM", 20),
		f("D/T of Most Recent Refill or Dose Dispensed", "TS", 26),
		f("Total Daily Dose", "CQ", 10),
		f("Needs Human Review", "ID", 1),
		rep(f("Pharmacy/Treatment Supplier's Special Dispensing Instructions", "CE", 200)),
		f("Give Per (Time Unit)", "ST", 20),
		f("Give Rate Amount", "ST", 6),
		f("Give Rate Units", "CE", 60),
		f("Give Strength", "NM", 20),
		f("Give Strength Units", "CE", 60),
		rep(f("Give Indication", "CE", 200)),
		f("Dispense Package Size", "NM", 20),
		f("Dispense Package Size Unit", "CE", 60),
		f("Dispense Package Method", "ID", 2),
	},
}

// RXR is the v2.3 pharmacy/treatment route segment.
var RXR = &segment.Schema{
	ID:   "RXR",
	Name: "Pharmacy/Treatment Route",
	Fields: []datatype.Spec{
		req(tbl(f("Route", "CE", 60), "0162")),
		f("Site", "CE", 60),
		f("Administration Device", "CE", 60),
		f("Administration Method", "CE", 60),
	},
}

// RXD is the v2.3 pharmacy/treatment dispense segment.
var RXD = &segment.Schema{
	ID:   "RXD",
	Name: "Pharmacy/Treatment Dispense",
	Fields: []datatype.Spec{
		req(f("Dispense Sub-ID Counter", "NM", 4)),
		req(f("Dispense/Give Code", "CE", 100)),
		req(f("Date/Time Dispensed", "TS", 26)),
		req(f("Actual Dispense Amount", "NM", 20)),
		f("Actual Dispense Units", "CE", 60),
		f("Actual Dosage Form", "CE", 60),
		req(f("Prescription Number", "ST", 20)),
		f("Number of Refills Remaining", "NM", 20),
		rep(f("Dispense Notes", "ST", 200)),
		f("Dispensing Provider", "XCN", 200),
		f("Substitution Status", "ID", 1),
		f("Total Daily Dose", "CQ", 10),
		f("Dispense-to Location", "CM_LA1", 200),
		f("Needs Human Review", "ID", 1),
		rep(f("Pharmacy/Treatment Supplier's Special Dispensing Instructions", "CE", 200)),
		f("Actual Strength", "NM", 20),
		f("Actual Strength Unit", "CE", 60),
		rep(f("Substance Lot Number", "ST", 20)),
		rep(f("Substance Expiration Date", "TS", 26)),
		rep(f("Substance Manufacturer Name", "CE", 60)),
		rep(f("Indication", "CE", 200)),
		f("Dispense Package Size", "NM", 20),
		f("Dispense Package Size Unit", "CE", 60),
		f("Dispense Package Method", "ID", 2),
	},
}

// MSA is the v2.3 message acknowledgment segment.
var MSA = &segment.Schema{
	ID:   "MSA",
	Name: "Message Acknowledgment",
	Fields: []datatype.Spec{
		req(tbl(f("Acknowledgment Code", "ID", 2), "0008")),
		req(f("Message Control ID", "ST", 20)),
		f("Text Message", "ST", 80),
		f("Expected Sequence Number", "NM", 15),
		f("Delayed Acknowledgment Type", "ID", 1),
		f("Error Condition", "CE", 100),
	},
}

// ERR is the v2.3 error segment.
var ERR = &segment.Schema{
	ID:   "ERR",
	Name: "Error",
	Fields: []datatype.Spec{
		req(rep(f("Error Code and Location", "CM_ELD", 80))),
	},
}

// NTE is the v2.3 notes and comments segment.
var NTE = &segment.Schema{
	ID:   "NTE",
	Name: "Notes and Comments",
	Fields: []datatype.Spec{
		f("Set ID", "SI", 4),
		f("Source of Comment", "ID", 8),
		rep(f("Comment", "FT", 65536)),
	},
}

// Segments returns the v2.3 segment factories.
func Segments() map[string]segment.Factory {
	return map[string]segment.Factory{
		"MSH": func() segment.Segment { return segment.NewMSH(MSH) },
		"EVN": func() segment.Segment { return segment.NewEVN(EVN) },
		"PID": func() segment.Segment { return segment.NewPID(PID) },
		"PV1": func() segment.Segment { return segment.NewPV1(PV1) },
		"NK1": func() segment.Segment { return segment.NewNK1(NK1) },
		"AL1": func() segment.Segment { return segment.NewAL1(AL1) },
		"ORC": func() segment.Segment { return segment.NewORC(ORC) },
		"RXE": func() segment.Segment { return segment.NewRXE(RXE) },
		"RXR": func() segment.Segment { return segment.NewRXR(RXR) },
		"RXD": func() segment.Segment { return segment.NewRXD(RXD) },
		"MSA": func() segment.Segment { return segment.NewMSA(MSA) },
		"ERR": func() segment.Segment { return segment.NewERR(ERR) },
		"NTE": func() segment.Segment { return segment.NewNTE(NTE) },
	}
}
