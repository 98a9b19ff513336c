package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts PDUs passing through the codec, labelled by RRC type and, for
// failures, by error kind.
type Metrics struct {
	Decoded      *prometheus.CounterVec
	Encoded      *prometheus.CounterVec
	DecodeErrors *prometheus.CounterVec
	EncodeErrors *prometheus.CounterVec
	PDUBytes     *prometheus.HistogramVec
}

// NewMetrics creates the codec metrics and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uper_pdus_decoded_total",
			Help: "PDUs decoded successfully.",
		}, []string{"type"}),
		Encoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uper_pdus_encoded_total",
			Help: "PDUs encoded successfully.",
		}, []string{"type"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uper_decode_errors_total",
			Help: "PDUs discarded because decoding failed.",
		}, []string{"type", "kind"}),
		EncodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uper_encode_errors_total",
			Help: "Values that could not be encoded.",
		}, []string{"type", "kind"}),
		PDUBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uper_pdu_bytes",
			Help:    "Size of encoded and decoded PDUs in octets.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"type"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Decoded, m.Encoded, m.DecodeErrors, m.EncodeErrors, m.PDUBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
