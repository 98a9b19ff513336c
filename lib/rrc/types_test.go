package rrc

import (
	"encoding/asn1"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebagchi/rrc-uper/lib/per"
	"github.com/thebagchi/rrc-uper/lib/schema"
)

func mibValue() schema.Record {
	return schema.Record{
		"systemFrameNumber":       asn1.BitString{Bytes: []byte{0xB0}, BitLength: 6},
		"subCarrierSpacingCommon": "scs30or120",
		"ssb-SubcarrierOffset":    int64(5),
		"dmrs-TypeA-Position":     "pos2",
		"pdcch-ConfigSIB1": schema.Record{
			"controlResourceSetZero": int64(3),
			"searchSpaceZero":        int64(7),
		},
		"cellBarred":           "notBarred",
		"intraFreqReselection": "allowed",
		"spare":                asn1.BitString{Bytes: []byte{0x00}, BitLength: 1},
	}
}

func measResultValue() schema.Record {
	return schema.Record{
		"physCellId": int64(42),
		"measResult": schema.Record{
			"resultsSSB-Cell": schema.Record{
				"rsrp": int64(80),
				"sinr": int64(60),
			},
		},
		"cgi-Info": schema.Record{
			"plmn-Identity": schema.Record{
				"mcc": []any{int64(0), int64(0), int64(1)},
				"mnc": []any{int64(0), int64(1)},
			},
			"cellIdentity": asn1.BitString{Bytes: []byte{0x12, 0x34, 0x56, 0x78, 0x90}, BitLength: 36},
		},
		"ssb-Index-r16":     int64(9),
		"choCandidate-r17":  "true",
		"timeToTrigger-r17": int64(4),
	}
}

func TestBCCHBCHMessage(t *testing.T) {
	value := schema.Record{"message": schema.Selection{Name: "mib", Value: mibValue()}}
	data, err := schema.Marshal(BCCHBCHMessage, value)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x59, 0x51, 0xBC}, data)

	decoded, err := schema.Unmarshal(BCCHBCHMessage, data)
	require.NoError(t, err)
	if diff := cmp.Diff(any(value), decoded); diff != "" {
		t.Fatalf("BCCH-BCH-Message mismatch (-want +got):\n%s", diff)
	}
}

func TestPLMNIdentity(t *testing.T) {
	value := schema.Record{
		"mcc": []any{int64(0), int64(0), int64(1)},
		"mnc": []any{int64(0), int64(1)},
	}
	data, err := schema.Marshal(PLMNIdentity, value)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x08, 0x04}, data)

	decoded, err := schema.Unmarshal(PLMNIdentity, data)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(any(value), decoded))

	value["mnc"] = []any{int64(0)}
	_, err = schema.Marshal(PLMNIdentity, value)
	assert.ErrorIs(t, err, per.ErrConstraintViolation)
}

func TestMeasResultNRReleases(t *testing.T) {
	r17, err := MeasResultNR(Release17)
	require.NoError(t, err)
	data, err := schema.Marshal(r17, measResultValue())
	require.NoError(t, err)

	decoded, err := schema.Unmarshal(r17, data)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(any(measResultValue()), decoded))

	// An older peer drops the groups it does not know.
	r15, err := MeasResultNR(Release15)
	require.NoError(t, err)
	decoded, err = schema.Unmarshal(r15, data)
	require.NoError(t, err)
	want := measResultValue()
	delete(want, "ssb-Index-r16")
	delete(want, "choCandidate-r17")
	delete(want, "timeToTrigger-r17")
	assert.Empty(t, cmp.Diff(any(want), decoded))

	// A newer peer decodes an older encoding without the later groups.
	r16, err := MeasResultNR(Release16)
	require.NoError(t, err)
	old, err := schema.Marshal(r15, want)
	require.NoError(t, err)
	decoded, err = schema.Unmarshal(r17, old)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(any(want), decoded))

	withR16 := measResultValue()
	delete(withR16, "choCandidate-r17")
	delete(withR16, "timeToTrigger-r17")
	mid, err := schema.Marshal(r16, withR16)
	require.NoError(t, err)
	decoded, err = schema.Unmarshal(r17, mid)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(any(withR16), decoded))

	_, err = MeasResultNR(14)
	assert.Error(t, err)
}

func TestMeasResultListNRKeepsAlignmentAcrossSkippedGroups(t *testing.T) {
	newer, err := MeasResultListNR(Release17)
	require.NoError(t, err)
	older, err := MeasResultListNR(Release15)
	require.NoError(t, err)

	second := schema.Record{
		"physCellId": int64(1007),
		"measResult": schema.Record{},
	}
	data, err := schema.Marshal(newer, []any{measResultValue(), second})
	require.NoError(t, err)

	decoded, err := schema.Unmarshal(older, data)
	require.NoError(t, err)
	items := decoded.([]any)
	require.Len(t, items, 2)
	assert.Equal(t, int64(42), items[0].(schema.Record)["physCellId"])
	assert.Empty(t, cmp.Diff(any(second), items[1]))
}

func TestMeasResultListNRBounds(t *testing.T) {
	list, err := MeasResultListNR(Release17)
	require.NoError(t, err)
	item := schema.Record{"measResult": schema.Record{}}

	test := func(n int, ok bool) {
		items := make([]any, n)
		for i := range items {
			items[i] = item
		}
		data, err := schema.Marshal(list, items)
		if !ok {
			assert.ErrorIs(t, err, per.ErrConstraintViolation, "count %d", n)
			return
		}
		require.NoError(t, err, "count %d", n)
		decoded, err := schema.Unmarshal(list, data)
		require.NoError(t, err)
		assert.Len(t, decoded, n)
	}
	test(0, false)
	test(1, true)
	test(8, true)
	test(9, false)
}

func TestULMessageChoice(t *testing.T) {
	r17, err := ULMessage(Release17)
	require.NoError(t, err)

	// Root alternative 1: extension bit 0, index bit 1, then the transaction id.
	complete := schema.Selection{
		Name:  "rrcReconfigurationComplete",
		Value: schema.Record{"rrc-TransactionIdentifier": int64(2)},
	}
	data, err := schema.Marshal(r17, complete)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60}, data)

	// Extension alternative: extension bit 1, normally small index 0, open type.
	transfer := schema.Selection{
		Name:  "ulInformationTransfer",
		Value: schema.Record{"dedicatedNAS-Message": []byte{0xAB}},
	}
	data, err = schema.Marshal(r17, transfer)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x03, 0x80, 0xD5, 0x80}, data)

	decoded, err := schema.Unmarshal(r17, data)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(any(transfer), decoded))

	// Release 15 has no ulInformationTransfer: the alternative is kept opaque and
	// relayed unchanged.
	r15, err := ULMessage(Release15)
	require.NoError(t, err)
	decoded, err = schema.Unmarshal(r15, data)
	require.NoError(t, err)
	assert.Equal(t, schema.Unrecognized{Index: 2, Raw: []byte{0x80, 0xD5, 0x80}}, decoded)
	relayed, err := schema.Marshal(r15, decoded)
	require.NoError(t, err)
	assert.Equal(t, data, relayed)
}

func TestULMessageMeasurementReport(t *testing.T) {
	r17, err := ULMessage(Release17)
	require.NoError(t, err)
	test := func(cause string) {
		t.Run(cause, func(t *testing.T) {
			report := schema.Selection{
				Name: "measurementReport",
				Value: schema.Record{
					"measId":               int64(64),
					"reportCause":          cause,
					"measResultNeighCells": []any{measResultValue()},
				},
			}
			data, err := schema.Marshal(r17, report)
			require.NoError(t, err)
			decoded, err := schema.Unmarshal(r17, data)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(any(report), decoded))
		})
	}
	test("periodical")
	test("eventA3")
	test("eventA5")
}

func TestTruncatedPDUs(t *testing.T) {
	r17, err := ULMessage(Release17)
	require.NoError(t, err)
	report := schema.Selection{
		Name: "measurementReport",
		Value: schema.Record{
			"measId":               int64(3),
			"reportCause":          "eventA5",
			"measResultNeighCells": []any{measResultValue(), measResultValue()},
		},
	}
	data, err := schema.Marshal(r17, report)
	require.NoError(t, err)

	for n := range len(data) {
		_, err := schema.Unmarshal(r17, data[:n])
		require.Error(t, err, "prefix %d", n)
		assert.True(t, errors.Is(err, per.ErrBufferOverrun), "prefix %d: %v", n, err)
		assert.Equal(t, "BufferOverrun", per.KindOf(err), "prefix %d", n)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		_, err := Lookup(name)
		assert.NoError(t, err, name)
	}
	typ, err := Lookup("MeasResultNR@15")
	require.NoError(t, err)
	assert.Len(t, typ.(*schema.Sequence).Groups, 1)

	_, err = Lookup("MeasResultNR@14")
	assert.Error(t, err)
	_, err = Lookup("MeasResultNR@xx")
	assert.Error(t, err)
	_, err = Lookup("RRCSetup")
	assert.Error(t, err)
}
