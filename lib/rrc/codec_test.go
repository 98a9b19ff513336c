package rrc

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebagchi/rrc-uper/internal/config"
	"github.com/thebagchi/rrc-uper/internal/observability"
	"github.com/thebagchi/rrc-uper/lib/per"
	"github.com/thebagchi/rrc-uper/lib/schema"
)

func newTestCodec(t *testing.T, cfg config.CodecConfig) (*Codec, *observability.Metrics, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	codec, err := NewCodec(zerolog.New(&buf), metrics, cfg)
	require.NoError(t, err)
	return codec, metrics, &buf
}

func TestCodecRoundTrip(t *testing.T) {
	codec, metrics, _ := newTestCodec(t, config.Default().Codec)
	value := schema.Record{"message": schema.Selection{Name: "mib", Value: mibValue()}}

	data, err := codec.Encode("BCCH-BCH-Message", value)
	require.NoError(t, err)
	decoded, err := codec.Decode("BCCH-BCH-Message", data)
	require.NoError(t, err)
	assert.Equal(t, any(value), decoded)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Encoded.WithLabelValues("BCCH-BCH-Message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Decoded.WithLabelValues("BCCH-BCH-Message")))
}

func TestCodecDecodeFailureIsLoggedAndCounted(t *testing.T) {
	codec, metrics, buf := newTestCodec(t, config.Default().Codec)

	v, err := codec.Decode("BCCH-BCH-Message", []byte{0x59, 0x51})
	require.Error(t, err)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, per.ErrBufferOverrun)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DecodeErrors.WithLabelValues("BCCH-BCH-Message", "BufferOverrun")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "BufferOverrun", line["kind"])
	assert.Equal(t, 1.0, line["byte_offset"])
	assert.Equal(t, 2.0, line["length"])
}

func TestCodecConstraintViolation(t *testing.T) {
	codec, metrics, _ := newTestCodec(t, config.Default().Codec)
	// The first MCC digit decodes as 14.
	_, err := codec.Decode("PLMN-Identity", []byte{0xF0, 0x00, 0x00})
	require.Error(t, err)
	assert.Equal(t, "ConstraintViolation", per.KindOf(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DecodeErrors.WithLabelValues("PLMN-Identity", "ConstraintViolation")))
}

func TestCodecEncodeFailure(t *testing.T) {
	codec, metrics, buf := newTestCodec(t, config.Default().Codec)
	_, err := codec.Encode("MIB", schema.Record{})
	require.Error(t, err)
	assert.ErrorIs(t, err, per.ErrConstraintViolation)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EncodeErrors.WithLabelValues("MIB", "ConstraintViolation")))
	assert.True(t, strings.Contains(buf.String(), "encode failed"))

	_, err = codec.Encode("RRCSetup", schema.Record{})
	assert.Error(t, err)
}

func TestCodecMaxExtensionAdditions(t *testing.T) {
	cfg := config.Default().Codec
	cfg.MaxExtensionAdditions = 2
	codec, _, _ := newTestCodec(t, cfg)

	data, err := codec.Encode("MeasResultNR", measResultValue())
	require.NoError(t, err)
	_, err = codec.Decode("MeasResultNR", data)
	require.Error(t, err)
	assert.ErrorIs(t, err, per.ErrConstraintViolation)

	cfg.MaxExtensionAdditions = 3
	codec, _, _ = newTestCodec(t, cfg)
	_, err = codec.Decode("MeasResultNR", data)
	assert.NoError(t, err)
}

func TestCodecDecodeBatch(t *testing.T) {
	cfg := config.Default().Codec
	cfg.BatchWorkers = 2
	codec, metrics, _ := newTestCodec(t, cfg)

	good, err := codec.Encode("MeasResultNR", measResultValue())
	require.NoError(t, err)
	pdus := [][]byte{good, good[:3], good, nil}

	results, err := codec.DecodeBatch(context.Background(), "MeasResultNR", pdus)
	require.NoError(t, err)
	require.Len(t, results, len(pdus))
	for i, want := range []bool{true, false, true, false} {
		if want {
			assert.NoError(t, results[i].Err, "pdu %d", i)
			assert.Equal(t, any(measResultValue()), results[i].Value, "pdu %d", i)
		} else {
			assert.ErrorIs(t, results[i].Err, per.ErrBufferOverrun, "pdu %d", i)
			assert.Nil(t, results[i].Value, "pdu %d", i)
		}
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Decoded.WithLabelValues("MeasResultNR")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DecodeErrors.WithLabelValues("MeasResultNR", "BufferOverrun")))
}

func TestCodecDecodeBatchCancelled(t *testing.T) {
	codec, _, _ := newTestCodec(t, config.Default().Codec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := codec.DecodeBatch(ctx, "MIB", [][]byte{{0x00}, {0x00}})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = codec.DecodeBatch(context.Background(), "RRCSetup", nil)
	assert.Error(t, err)
}
