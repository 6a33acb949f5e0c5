// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Bridge holds the prometheus collectors for the bridge engine: block
// advancement, deposit/withdrawal throughput, and per-operation
// latency. New registers the collectors; engine.New receives the
// already-built set. The engine records nothing to the latency and
// lock-wait histograms (ObserveOperation, ObserveLockWait).
type Bridge struct {
	Registry prometheus.Registerer

	blocksAdvanced        prometheus.Counter
	reorgsAccepted        prometheus.Counter
	tipHeight             prometheus.Gauge
	finalizedHeight       prometheus.Gauge
	depositsAutoClaimed   prometheus.Counter
	depositsManualClaimed prometheus.Counter
	withdrawalsRequested  prometheus.Counter
	withdrawalsProcessed  prometheus.Counter
	outboundMessages      prometheus.Counter
	operationLatency      *prometheus.HistogramVec
	lockWaitSeconds       prometheus.Histogram
}

// New creates a Bridge metrics set and registers every collector with
// reg. Mirrors the consensus engine's NewMetrics/Register pairing, generalized
// to the fixed collector set the bridge engine emits.
func New(reg prometheus.Registerer) (*Bridge, error) {
	m := newUnregistered()
	m.Registry = reg
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewUnregistered builds the same collector set without registering
// it, for tests that don't want a live prometheus.Registerer.
func NewUnregistered() *Bridge {
	return newUnregistered()
}

func newUnregistered() *Bridge {
	return &Bridge{
		blocksAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogebridge_blocks_advanced_total",
			Help: "Number of host-chain-confirmed Dogecoin blocks applied to bridge state.",
		}),
		reorgsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogebridge_reorgs_accepted_total",
			Help: "Number of reorg replacements accepted within the depth tolerance.",
		}),
		tipHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dogebridge_tip_height",
			Help: "Current tip block height tracked by the bridge.",
		}),
		finalizedHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dogebridge_finalized_height",
			Help: "Current finalized block height tracked by the bridge.",
		}),
		depositsAutoClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogebridge_deposits_auto_claimed_total",
			Help: "Number of deposits inserted into the auto-claim merkle tree.",
		}),
		depositsManualClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogebridge_deposits_manual_claimed_total",
			Help: "Number of deposits claimed via the manual, depositor-invoked path.",
		}),
		withdrawalsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogebridge_withdrawals_requested_total",
			Help: "Number of burn-queue withdrawal requests enqueued.",
		}),
		withdrawalsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogebridge_withdrawals_processed_total",
			Help: "Number of withdrawal requests dequeued and attested for payout.",
		}),
		outboundMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogebridge_outbound_messages_total",
			Help: "Number of attested outbound messages emitted to the signer set.",
		}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dogebridge_operation_latency_seconds",
			Help:    "Wall-clock latency of dispatched bridge operations, by opcode name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		lockWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dogebridge_lock_wait_seconds",
			Help:    "Time an operation spent waiting on the engine's state mutex.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Bridge) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.blocksAdvanced,
		m.reorgsAccepted,
		m.tipHeight,
		m.finalizedHeight,
		m.depositsAutoClaimed,
		m.depositsManualClaimed,
		m.withdrawalsRequested,
		m.withdrawalsProcessed,
		m.outboundMessages,
		m.operationLatency,
		m.lockWaitSeconds,
	}
}

// Register registers an additional ad-hoc prometheus collector,
// matching the consensus engine's Metrics.Register signature.
func (m *Bridge) Register(collector prometheus.Collector) error {
	return m.Registry.Register(collector)
}

func (m *Bridge) BlockAdvanced(tip, finalized uint32) {
	m.blocksAdvanced.Inc()
	m.tipHeight.Set(float64(tip))
	m.finalizedHeight.Set(float64(finalized))
}

func (m *Bridge) ReorgAccepted() { m.reorgsAccepted.Inc() }

func (m *Bridge) DepositAutoClaimed() { m.depositsAutoClaimed.Inc() }

func (m *Bridge) DepositManualClaimed() { m.depositsManualClaimed.Inc() }

func (m *Bridge) WithdrawalRequested() { m.withdrawalsRequested.Inc() }

func (m *Bridge) WithdrawalProcessed() { m.withdrawalsProcessed.Inc() }

func (m *Bridge) OutboundMessage() { m.outboundMessages.Inc() }

func (m *Bridge) ObserveOperation(opcode string, seconds float64) {
	m.operationLatency.WithLabelValues(opcode).Observe(seconds)
}

func (m *Bridge) ObserveLockWait(seconds float64) {
	m.lockWaitSeconds.Observe(seconds)
}
