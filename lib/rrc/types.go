// Package rrc holds a representative set of NR RRC (TS 38.331) types described
// with the schema package, and the PDU codec used by procedure code.
package rrc

import (
	"fmt"
	"slices"

	"github.com/thebagchi/rrc-uper/lib/per"
	"github.com/thebagchi/rrc-uper/lib/schema"
)

// Releases of MeasResultNR. Each release appends one extension group.
const (
	Release15 = 15
	Release16 = 16
	Release17 = 17
)

var (
	// PhysCellId ::= INTEGER (0..1007)
	PhysCellId = schema.NewInteger(0, 1007)
	// SFN ::= INTEGER (0..1023)
	SFN = schema.NewInteger(0, 1023)
	// ARFCN-ValueNR ::= INTEGER (0..3279165)
	ARFCNValueNR = schema.NewInteger(0, 3279165)
	// RRC-TransactionIdentifier ::= INTEGER (0..3)
	RRCTransactionIdentifier = schema.NewInteger(0, 3)

	// MCC-MNC-Digit ::= INTEGER (0..9)
	MCCMNCDigit = schema.NewInteger(0, 9)
	// MCC ::= SEQUENCE (SIZE (3)) OF MCC-MNC-Digit
	MCC = &schema.SequenceOf{Element: MCCMNCDigit, Lb: per.Ptr[uint64](3), Ub: per.Ptr[uint64](3)}
	// MNC ::= SEQUENCE (SIZE (2..3)) OF MCC-MNC-Digit
	MNC = &schema.SequenceOf{Element: MCCMNCDigit, Lb: per.Ptr[uint64](2), Ub: per.Ptr[uint64](3)}

	PLMNIdentity = &schema.Sequence{
		Name: "PLMN-Identity",
		Fields: []schema.Field{
			{Name: "mcc", Type: MCC, Optional: true},
			{Name: "mnc", Type: MNC},
		},
	}

	PDCCHConfigSIB1 = &schema.Sequence{
		Name: "PDCCH-ConfigSIB1",
		Fields: []schema.Field{
			{Name: "controlResourceSetZero", Type: schema.NewInteger(0, 15)},
			{Name: "searchSpaceZero", Type: schema.NewInteger(0, 15)},
		},
	}

	MIB = &schema.Sequence{
		Name: "MIB",
		Fields: []schema.Field{
			{Name: "systemFrameNumber", Type: schema.FixedBitString(6)},
			{Name: "subCarrierSpacingCommon", Type: schema.NewEnumerated("scs15or60", "scs30or120")},
			{Name: "ssb-SubcarrierOffset", Type: schema.NewInteger(0, 15)},
			{Name: "dmrs-TypeA-Position", Type: schema.NewEnumerated("pos2", "pos3")},
			{Name: "pdcch-ConfigSIB1", Type: PDCCHConfigSIB1},
			{Name: "cellBarred", Type: schema.NewEnumerated("barred", "notBarred")},
			{Name: "intraFreqReselection", Type: schema.NewEnumerated("allowed", "notAllowed")},
			{Name: "spare", Type: schema.FixedBitString(1)},
		},
	}

	BCCHBCHMessage = &schema.Sequence{
		Name: "BCCH-BCH-Message",
		Fields: []schema.Field{
			{Name: "message", Type: &schema.Choice{
				Name: "BCCH-BCH-MessageType",
				Alternatives: []schema.Alternative{
					{Name: "mib", Type: MIB},
					{Name: "messageClassExtension", Type: &schema.Sequence{Name: "messageClassExtension"}},
				},
			}},
		},
	}

	// RSRP-Range, RSRQ-Range and SINR-Range ::= INTEGER (0..127)
	MeasQuantityResults = &schema.Sequence{
		Name: "MeasQuantityResults",
		Fields: []schema.Field{
			{Name: "rsrp", Type: schema.NewInteger(0, 127), Optional: true},
			{Name: "rsrq", Type: schema.NewInteger(0, 127), Optional: true},
			{Name: "sinr", Type: schema.NewInteger(0, 127), Optional: true},
		},
	}

	CGIInfoNR = &schema.Sequence{
		Name: "CGI-InfoNR",
		Fields: []schema.Field{
			{Name: "plmn-Identity", Type: PLMNIdentity},
			{Name: "cellIdentity", Type: schema.FixedBitString(36)},
			{Name: "trackingAreaCode", Type: schema.FixedBitString(24), Optional: true},
		},
		Extensible: true,
	}

	ReportCause = &schema.Enumerated{
		Values:     []string{"periodical", "eventA3"},
		Extensions: []string{"eventA5"},
	}
)

// measResultGroups lists the MeasResultNR extension additions in release order.
var measResultGroups = []schema.Group{
	{
		{Name: "cgi-Info", Type: CGIInfoNR, Optional: true},
	},
	{
		{Name: "ssb-Index-r16", Type: schema.NewInteger(0, 63), Optional: true},
		{Name: "absoluteFrequencySSB-r16", Type: ARFCNValueNR, Optional: true},
	},
	{
		{Name: "choCandidate-r17", Type: schema.NewEnumerated("true"), Optional: true},
		{Name: "timeToTrigger-r17", Type: schema.NewInteger(0, 15), Optional: true},
	},
}

// MeasResultNR returns MeasResultNR as compiled for the given release.
func MeasResultNR(release int) (*schema.Sequence, error) {
	if release < Release15 || release > Release17 {
		return nil, fmt.Errorf("rrc: no MeasResultNR for release %d", release)
	}
	return &schema.Sequence{
		Name: "MeasResultNR",
		Fields: []schema.Field{
			{Name: "physCellId", Type: PhysCellId, Optional: true},
			{Name: "measResult", Type: &schema.Sequence{
				Name: "measResult",
				Fields: []schema.Field{
					{Name: "resultsSSB-Cell", Type: MeasQuantityResults, Optional: true},
					{Name: "resultsCSI-RS-Cell", Type: MeasQuantityResults, Optional: true},
				},
			}},
		},
		Extensible: true,
		Groups:     measResultGroups[:release-Release15+1],
	}, nil
}

// MeasResultListNR returns SEQUENCE (SIZE (1..8)) OF MeasResultNR for release.
func MeasResultListNR(release int) (*schema.SequenceOf, error) {
	element, err := MeasResultNR(release)
	if err != nil {
		return nil, err
	}
	return &schema.SequenceOf{Element: element, Lb: per.Ptr[uint64](1), Ub: per.Ptr[uint64](8)}, nil
}

// ULMessage returns the uplink message CHOICE for release. Release 15 knows the
// two root alternatives; later releases add ulInformationTransfer after the
// extension marker.
func ULMessage(release int) (*schema.Choice, error) {
	list, err := MeasResultListNR(release)
	if err != nil {
		return nil, err
	}
	choice := &schema.Choice{
		Name: "UL-Message",
		Alternatives: []schema.Alternative{
			{Name: "measurementReport", Type: &schema.Sequence{
				Name: "MeasurementReport",
				Fields: []schema.Field{
					{Name: "measId", Type: schema.NewInteger(1, 64)},
					{Name: "reportCause", Type: ReportCause, Default: "periodical"},
					{Name: "measResultNeighCells", Type: list, Optional: true},
				},
				Extensible: true,
			}},
			{Name: "rrcReconfigurationComplete", Type: &schema.Sequence{
				Name: "RRCReconfigurationComplete",
				Fields: []schema.Field{
					{Name: "rrc-TransactionIdentifier", Type: RRCTransactionIdentifier},
				},
			}},
		},
		Extensible: true,
	}
	if release >= Release16 {
		choice.Extensions = []schema.Alternative{
			{Name: "ulInformationTransfer", Type: &schema.Sequence{
				Name: "ULInformationTransfer",
				Fields: []schema.Field{
					{Name: "dedicatedNAS-Message", Type: &schema.OctetString{}, Optional: true},
				},
			}},
		}
	}
	return choice, nil
}

// Lookup returns the type registered under name for the latest release. Names
// with a "@15", "@16" or "@17" suffix select a release.
func Lookup(name string) (schema.Type, error) {
	base, release := name, Release17
	if i := len(name) - 3; i > 0 && name[i] == '@' {
		base = name[:i]
		if _, err := fmt.Sscanf(name[i+1:], "%d", &release); err != nil {
			return nil, fmt.Errorf("rrc: bad release in %q", name)
		}
	}
	switch base {
	case "BCCH-BCH-Message":
		return BCCHBCHMessage, nil
	case "MIB":
		return MIB, nil
	case "PLMN-Identity":
		return PLMNIdentity, nil
	case "MeasResultNR":
		return MeasResultNR(release)
	case "MeasResultListNR":
		return MeasResultListNR(release)
	case "UL-Message":
		return ULMessage(release)
	}
	return nil, fmt.Errorf("rrc: unknown type %q", name)
}

// Names returns the registered type names.
func Names() []string {
	names := []string{"BCCH-BCH-Message", "MIB", "PLMN-Identity", "MeasResultNR", "MeasResultListNR", "UL-Message"}
	slices.Sort(names)
	return names
}
