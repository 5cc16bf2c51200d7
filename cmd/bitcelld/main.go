// Copyright (C) 2025, BitCell Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Command bitcelld runs a BitCell consensus node.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Steake/BitCell-sub000/bitcrypto/ecdsa"
	"github.com/Steake/BitCell-sub000/config"
	"github.com/Steake/BitCell-sub000/consensusengine"
	zkbattle "github.com/Steake/BitCell-sub000/zkcircuit/battle"
)

var rootCmd = &cobra.Command{
	Use:   "bitcelld",
	Short: "bitcelld runs a BitCell consensus node",
	Long: `bitcelld drives the per-epoch cellular-automaton tournament,
EBSL trust tracking, BFT finality voting, and chain-state transitions
that make up BitCell consensus.`,
}

func main() {
	rootCmd.AddCommand(runCmd(), keygenCmd(), configCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a node against a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			keyPath, err := cmd.Flags().GetString("key")
			if err != nil {
				return err
			}
			return runNode(configPath, keyPath)
		},
	}
	cmd.Flags().String("config", "node.yaml", "path to node configuration")
	cmd.Flags().String("key", "", "path to node signing key (overrides config node_key_path)")
	return cmd
}

func runNode(configPath, keyPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if keyPath == "" {
		keyPath = cfg.NodeKeyPath
	}
	sk, err := loadOrGenerateKey(keyPath)
	if err != nil {
		return fmt.Errorf("loading node key: %w", err)
	}

	engine, err := consensusengine.New(cfg, sk, zkbattle.ReferenceProvider{}, zkbattle.ReferenceProvider{})
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}

	engine.Log.Sugar().Infow("bitcelld starting",
		"listen_addr", cfg.Network.ListenAddr,
		"node_id", sk.Public().NodeID().String(),
	)

	// The networking/gossip layer that feeds commits, reveals, votes,
	// and transactions into engine is an external capability (§9), out
	// of scope for this entrypoint; a production deployment wires a
	// transport here and calls engine.RunEpoch per tick.
	select {}
}

func loadOrGenerateKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		return ecdsa.GenerateKey()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			sk, genErr := ecdsa.GenerateKey()
			if genErr != nil {
				return nil, genErr
			}
			if writeErr := os.WriteFile(path, sk.Bytes(), 0o600); writeErr != nil {
				return nil, writeErr
			}
			return sk, nil
		}
		return nil, err
	}
	return ecdsa.PrivateKeyFromBytes(raw), nil
}

func keygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new node signing key",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			sk, err := ecdsa.GenerateKey()
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Printf("%x\n", sk.Bytes())
				return nil
			}
			return os.WriteFile(out, sk.Bytes(), 0o600)
		},
	}
	cmd.Flags().String("out", "", "write the generated key to this path instead of stdout")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Println("configuration is valid")
			return nil
		},
	})
	cmd.PersistentFlags().String("config", "node.yaml", "path to node configuration")
	return cmd
}
