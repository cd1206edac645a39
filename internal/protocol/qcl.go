package protocol

import "math"

// Operation names of the QCL controller.
const (
	Wavenumber   = "wavenumber"
	PulseRate    = "pulse_rate"
	PulseWidth   = "pulse_width"
	ScanStart    = "scan_start"
	ScanStop     = "scan_stop"
	ScanRate     = "scan_rate"
	ScanCycles   = "scan_cycles"
	WorkingHours = "working_hours"
	ScanCount    = "scan_count"
	ScanRun      = "scan_run"
)

// Serial settings the controller ships with.
const (
	QCLBaud = 115200
)

// Tunable wavenumber span of the laser head, in cm-1.
const (
	minWavenumber = 980.04
	maxWavenumber = 1244.99
)

func wavenumberRange() *Range { return &Range{Min: minWavenumber, Max: maxWavenumber} }

// QCLOperations returns the command set of the QCL laser controller.
// Settings are not acknowledged by the controller; they are confirmed by
// reading the quantity back.
func QCLOperations() []Operation {
	return []Operation{
		{
			Name:        Wavenumber,
			Description: "laser emission wavenumber",
			Kind:        KindFloat,
			GetCommand:  ":laser:set?",
			SetCommand:  ":laser:set %s",
			SetReply:    ReplyReadback,
			Unit:        "cm-1",
			Range:       wavenumberRange(),
			Precision:   2,
		},
		{
			Name:        PulseRate,
			Description: "pulse repetition rate",
			Kind:        KindFloat,
			GetCommand:  ":pulse:freq?",
			SetCommand:  ":pulse:freq %s",
			SetReply:    ReplyReadback,
			Unit:        "kHz",
			Range:       &Range{Min: 1, Max: 100},
			Precision:   1,
		},
		{
			Name:        PulseWidth,
			Description: "pulse width",
			Kind:        KindFloat,
			GetCommand:  ":pulse:width?",
			SetCommand:  ":pulse:width %s",
			SetReply:    ReplyReadback,
			Unit:        "us",
			Range:       &Range{Min: 0.04, Max: 0.5},
			Precision:   2,
		},
		{
			Name:        ScanStart,
			Description: "scan start wavenumber",
			Kind:        KindFloat,
			GetCommand:  ":scan:start?",
			SetCommand:  ":scan:start %s",
			SetReply:    ReplyReadback,
			Unit:        "cm-1",
			Range:       wavenumberRange(),
			Precision:   2,
		},
		{
			Name:        ScanStop,
			Description: "scan stop wavenumber",
			Kind:        KindFloat,
			GetCommand:  ":scan:stop?",
			SetCommand:  ":scan:stop %s",
			SetReply:    ReplyReadback,
			Unit:        "cm-1",
			Range:       wavenumberRange(),
			Precision:   2,
		},
		{
			Name:        ScanRate,
			Description: "scan rate",
			Kind:        KindInt,
			GetCommand:  ":scan:rate?",
			SetCommand:  ":scan:rate %d",
			SetReply:    ReplyReadback,
			Range:       &Range{Min: 1, Max: 6},
		},
		{
			Name:        ScanCycles,
			Description: "number of scans per run",
			Kind:        KindInt,
			GetCommand:  ":scan:cycles?",
			SetCommand:  ":scan:cycles %d",
			SetReply:    ReplyReadback,
			Range:       &Range{Min: 1, Max: 10000},
		},
		{
			Name:        WorkingHours,
			Description: "laser head working hours",
			Kind:        KindFloat,
			GetCommand:  ":info:hhrs?",
			Unit:        "hrs",
			Range:       &Range{Min: 0, Max: math.Inf(1)},
			Precision:   1,
		},
		{
			Name:        ScanCount,
			Description: "scans completed in the current run",
			Kind:        KindInt,
			GetCommand:  ":scan:count?",
			Range:       &Range{Min: 0, Max: math.Inf(1)},
		},
		{
			Name:        ScanRun,
			Description: "start (true) or stop (false) a scan run",
			Kind:        KindBool,
			SetCommand:  ":scan:run %d",
			SetReply:    ReplyNone,
		},
	}
}

// QCLRegistry returns the validated QCL command table.
func QCLRegistry() *Registry {
	return MustRegistry(QCLOperations()...)
}
