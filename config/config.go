// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads node configuration from YAML, covering the
// tunable parameters named throughout the spec: EBSL decay/threshold
// parameters, tournament/battle parameters, the mempool bound, and network
// identity (§5 ambient "config" concern).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Steake/BitCell-sub000/ebsl"
)

// EBSLConfig mirrors ebsl.Params for YAML decoding.
type EBSLConfig struct {
	AlphaPos float64 `yaml:"alpha_pos"`
	AlphaNeg float64 `yaml:"alpha_neg"`
	K        float64 `yaml:"k"`
	A        float64 `yaml:"a"`
	TMin     float64 `yaml:"t_min"`
	TKill    float64 `yaml:"t_kill"`
	BMin     uint64  `yaml:"b_min"`
}

// ToParams converts the decoded YAML config into ebsl.Params.
func (c EBSLConfig) ToParams() ebsl.Params {
	return ebsl.Params{
		AlphaPos: c.AlphaPos,
		AlphaNeg: c.AlphaNeg,
		K:        c.K,
		A:        c.A,
		TMin:     c.TMin,
		TKill:    c.TKill,
		BMin:     c.BMin,
	}
}

// TournamentConfig mirrors tournament.Params for YAML decoding.
type TournamentConfig struct {
	Energy0 uint8 `yaml:"energy0"`
}

// NetworkConfig describes this node's identity and peers.
type NetworkConfig struct {
	ListenAddr string   `yaml:"listen_addr"`
	Bootstrap  []string `yaml:"bootstrap"`
}

// PoolConfig bounds the mempool.
type PoolConfig struct {
	MaxSize int `yaml:"max_size"`
}

// Config is the full on-disk node configuration.
type Config struct {
	NodeKeyPath string           `yaml:"node_key_path"`
	Network     NetworkConfig    `yaml:"network"`
	EBSL        EBSLConfig       `yaml:"ebsl"`
	Tournament  TournamentConfig `yaml:"tournament"`
	Pool        PoolConfig       `yaml:"mempool"`
	DevLogging  bool             `yaml:"dev_logging"`
}

// Default returns the baseline configuration, matching ebsl.DefaultParams
// and tournament.DefaultParams so an operator only needs to override what
// they care about.
func Default() Config {
	d := ebsl.DefaultParams()
	return Config{
		Network: NetworkConfig{ListenAddr: "0.0.0.0:9651"},
		EBSL: EBSLConfig{
			AlphaPos: d.AlphaPos,
			AlphaNeg: d.AlphaNeg,
			K:        d.K,
			A:        d.A,
			TMin:     d.TMin,
			TKill:    d.TKill,
			BMin:     d.BMin,
		},
		Tournament: TournamentConfig{Energy0: 64},
		Pool:       PoolConfig{MaxSize: 8192},
	}
}

// Load reads and parses a YAML configuration file, filling any
// unspecified fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configuration that would violate protocol invariants
// outright.
func (c Config) Validate() error {
	if c.Pool.MaxSize <= 0 {
		return fmt.Errorf("config: mempool.max_size must be positive, got %d", c.Pool.MaxSize)
	}
	if c.EBSL.AlphaPos <= 0 || c.EBSL.AlphaPos >= 1 || c.EBSL.AlphaNeg <= 0 || c.EBSL.AlphaNeg >= 1 {
		return fmt.Errorf("config: ebsl decay factors must lie in (0, 1)")
	}
	return nil
}
