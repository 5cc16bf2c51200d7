// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package telemetry wires structured logging and metrics registration for
// a node (§5 ambient logging/metrics concerns).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// NewLogger returns a production zap logger for normal node operation, or
// a development logger (colorized, caller-annotated) when dev is true.
func NewLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Metrics bundles the counters and gauges a node publishes to the
// Prometheus registry (§5: "metrics/prometheus" ambient concern).
type Metrics struct {
	Registry *prometheus.Registry

	BlocksProposed   prometheus.Counter
	BlocksFinalized  prometheus.Counter
	BattlesPlayed    prometheus.Counter
	TournamentEmpty  prometheus.Counter
	EquivocationSeen prometheus.Counter
	InvalidProofSeen prometheus.Counter
	MempoolSize      prometheus.Gauge
	MempoolEvicted   prometheus.Counter
	TrustMean        prometheus.Gauge
}

// NewMetrics constructs and registers all node metrics against a fresh
// registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		BlocksProposed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitcell_blocks_proposed_total",
			Help: "Total number of blocks proposed by this node.",
		}),
		BlocksFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitcell_blocks_finalized_total",
			Help: "Total number of blocks observed reaching finality.",
		}),
		BattlesPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitcell_battles_played_total",
			Help: "Total number of cellular-automaton battles simulated.",
		}),
		TournamentEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitcell_tournament_empty_epochs_total",
			Help: "Total number of epochs that fell back to the empty-epoch marker.",
		}),
		EquivocationSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitcell_equivocation_evidence_total",
			Help: "Total number of equivocation evidence items applied.",
		}),
		InvalidProofSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitcell_invalid_proof_evidence_total",
			Help: "Total number of invalid-proof evidence items raised.",
		}),
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bitcell_mempool_size",
			Help: "Current number of transactions resident in the mempool.",
		}),
		MempoolEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitcell_mempool_evicted_total",
			Help: "Total number of transactions evicted from the mempool under back-pressure.",
		}),
		TrustMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bitcell_trust_mean",
			Help: "Mean EBSL trust value across tracked participants.",
		}),
	}

	collectors := []prometheus.Collector{
		m.BlocksProposed, m.BlocksFinalized, m.BattlesPlayed, m.TournamentEmpty,
		m.EquivocationSeen, m.InvalidProofSeen, m.MempoolSize, m.MempoolEvicted, m.TrustMean,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
