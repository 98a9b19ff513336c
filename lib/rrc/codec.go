package rrc

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/thebagchi/rrc-uper/internal/config"
	"github.com/thebagchi/rrc-uper/internal/observability"
	"github.com/thebagchi/rrc-uper/lib/per"
	"github.com/thebagchi/rrc-uper/lib/schema"
)

// Codec encodes and decodes whole RRC PDUs by type name. Inbound PDUs that fail
// to decode are logged with their error kind and byte offset, counted, and
// discarded; the partially decoded value is never returned.
type Codec struct {
	logger  zerolog.Logger
	metrics *observability.Metrics
	opts    []per.DecoderOption
	workers int
}

// NewCodec creates a codec. A nil metrics gets an unregistered set.
func NewCodec(logger zerolog.Logger, metrics *observability.Metrics, cfg config.CodecConfig) (*Codec, error) {
	if metrics == nil {
		var err error
		if metrics, err = observability.NewMetrics(nil); err != nil {
			return nil, err
		}
	}
	workers := cfg.BatchWorkers
	if workers < 1 {
		workers = 1
	}
	return &Codec{
		logger:  logger,
		metrics: metrics,
		opts:    []per.DecoderOption{per.WithMaxExtensionAdditions(cfg.MaxExtensionAdditions)},
		workers: workers,
	}, nil
}

// Encode marshals v as a PDU of the named type.
func (c *Codec) Encode(name string, v any) ([]byte, error) {
	t, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	data, err := schema.Marshal(t, v)
	if err != nil {
		kind := per.KindOf(err)
		c.metrics.EncodeErrors.WithLabelValues(name, kind).Inc()
		c.logger.Error().Err(err).Str("type", name).Str("kind", kind).Msg("encode failed")
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	c.metrics.Encoded.WithLabelValues(name).Inc()
	c.metrics.PDUBytes.WithLabelValues(name).Observe(float64(len(data)))
	return data, nil
}

// Decode unmarshals a PDU of the named type.
func (c *Codec) Decode(name string, data []byte) (any, error) {
	t, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.decode(name, t, data)
}

func (c *Codec) decode(name string, t schema.Type, data []byte) (any, error) {
	v, err := schema.Unmarshal(t, data, c.opts...)
	if err != nil {
		kind := per.KindOf(err)
		offset, _ := per.OffsetOf(err)
		c.metrics.DecodeErrors.WithLabelValues(name, kind).Inc()
		c.logger.Warn().
			Err(err).
			Str("type", name).
			Str("kind", kind).
			Uint64("byte_offset", offset/8).
			Int("length", len(data)).
			Msg("pdu discarded")
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	c.metrics.Decoded.WithLabelValues(name).Inc()
	c.metrics.PDUBytes.WithLabelValues(name).Observe(float64(len(data)))
	c.logger.Debug().Str("type", name).Int("length", len(data)).Msg("pdu decoded")
	return v, nil
}

// Result is the outcome of decoding one PDU of a batch.
type Result struct {
	Value any
	Err   error
}

// DecodeBatch decodes independent PDUs of the named type concurrently, one
// decoder per PDU. Per-PDU failures are reported in the matching Result; the
// returned error is only set for an unknown type or a cancelled ctx.
func (c *Codec) DecodeBatch(ctx context.Context, name string, pdus [][]byte) ([]Result, error) {
	t, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(pdus))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, pdu := range pdus {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := c.decode(name, t, pdu)
			results[i] = Result{Value: v, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
