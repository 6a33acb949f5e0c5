// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridgeconfig is the bridge's network-parameter/fee-schedule
// builder, a fluent construction surface grounded on the consensus engine's own
// config.Builder (config/builder.go): chained With* setters over a
// mutable config, a sticky first-error field, and a final Build() that
// validates before returning.
package bridgeconfig

import (
	"fmt"

	"github.com/dogebridge/core/wire"
)

// NetworkType selects a preset fee/parameter schedule, mirroring the
// teacher's NetworkType (mainnet/testnet/local) for the bridge domain.
type NetworkType string

const (
	MainnetNetwork NetworkType = "mainnet"
	TestnetNetwork NetworkType = "testnet"
	LocalNetwork   NetworkType = "local"
)

// ReorgDepth is the fixed tolerance spec.md §3/§5 names: the tip may
// lead the finalized height by at most this many blocks.
const ReorgDepth = 10

// GraceSeconds is the custodian-transition PENDING -> PAUSED gate
// (spec.md §4.8, §8: "7200s").
const GraceSeconds = 2 * 60 * 60

// Network carries the bridge's fee schedule plus the fixed protocol
// constants a deployment may still want to see named in one place.
type Network struct {
	Fees        wire.BridgeConfig
	ReorgDepth  uint32
	GraceSecs   uint32
	MerkleDepth uint8
}

// Builder is a fluent constructor for Network, in the consensus engine's
// config.Builder style.
type Builder struct {
	network *Network
	err     error
}

// NewBuilder returns a Builder seeded with conservative defaults.
func NewBuilder() *Builder {
	return &Builder{
		network: &Network{
			Fees: wire.BridgeConfig{
				DepositFeeFlatSats:    10_000,
				DepositFeeBps:         10,
				WithdrawalFeeFlatSats: 20_000,
				WithdrawalFeeBps:      20,
				MinDepositSats:        100_000,
				MinWithdrawalSats:     100_000,
				MaxWithdrawalSats:     21_000_000_00000000,
			},
			ReorgDepth:  ReorgDepth,
			GraceSecs:   GraceSeconds,
			MerkleDepth: 32,
		},
	}
}

// FromPreset loads one of the named presets.
func (b *Builder) FromPreset(preset NetworkType) *Builder {
	if b.err != nil {
		return b
	}
	switch preset {
	case MainnetNetwork:
		b.network = clone(&mainnetPreset)
	case TestnetNetwork:
		b.network = clone(&testnetPreset)
	case LocalNetwork:
		b.network = clone(&localPreset)
	default:
		b.err = fmt.Errorf("bridgeconfig: unknown preset %q", preset)
	}
	return b
}

func clone(n *Network) *Network {
	c := *n
	return &c
}

// WithDepositFee sets the deposit fee schedule (flat sats + bps).
func (b *Builder) WithDepositFee(flatSats uint64, bps uint32) *Builder {
	if b.err != nil {
		return b
	}
	if bps > 10_000 {
		b.err = fmt.Errorf("bridgeconfig: deposit fee bps %d exceeds 10000", bps)
		return b
	}
	b.network.Fees.DepositFeeFlatSats = flatSats
	b.network.Fees.DepositFeeBps = bps
	return b
}

// WithWithdrawalFee sets the withdrawal fee schedule.
func (b *Builder) WithWithdrawalFee(flatSats uint64, bps uint32) *Builder {
	if b.err != nil {
		return b
	}
	if bps > 10_000 {
		b.err = fmt.Errorf("bridgeconfig: withdrawal fee bps %d exceeds 10000", bps)
		return b
	}
	b.network.Fees.WithdrawalFeeFlatSats = flatSats
	b.network.Fees.WithdrawalFeeBps = bps
	return b
}

// WithDepositBounds sets min deposit sats.
func (b *Builder) WithDepositBounds(minSats uint64) *Builder {
	if b.err != nil {
		return b
	}
	b.network.Fees.MinDepositSats = minSats
	return b
}

// WithWithdrawalBounds sets min/max withdrawal sats.
func (b *Builder) WithWithdrawalBounds(minSats, maxSats uint64) *Builder {
	if b.err != nil {
		return b
	}
	if maxSats < minSats {
		b.err = fmt.Errorf("bridgeconfig: max withdrawal %d below min %d", maxSats, minSats)
		return b
	}
	b.network.Fees.MinWithdrawalSats = minSats
	b.network.Fees.MaxWithdrawalSats = maxSats
	return b
}

// WithMerkleDepth sets the depth used for the auto-claim, deposit, and
// withdrawal trees this network instantiates.
func (b *Builder) WithMerkleDepth(depth uint8) *Builder {
	if b.err != nil {
		return b
	}
	if depth == 0 || depth > 64 {
		b.err = fmt.Errorf("bridgeconfig: merkle depth %d out of range", depth)
		return b
	}
	b.network.MerkleDepth = depth
	return b
}

// Build validates and returns the assembled Network.
func (b *Builder) Build() (*Network, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.network.Fees.MaxWithdrawalSats < b.network.Fees.MinWithdrawalSats {
		return nil, fmt.Errorf("bridgeconfig: invalid withdrawal bounds")
	}
	return b.network, nil
}

var (
	mainnetPreset = Network{
		Fees: wire.BridgeConfig{
			DepositFeeFlatSats:    10_000,
			DepositFeeBps:         10,
			WithdrawalFeeFlatSats: 20_000,
			WithdrawalFeeBps:      20,
			MinDepositSats:        100_000,
			MinWithdrawalSats:     100_000,
			MaxWithdrawalSats:     21_000_000_00000000,
		},
		ReorgDepth:  ReorgDepth,
		GraceSecs:   GraceSeconds,
		MerkleDepth: 32,
	}
	testnetPreset = Network{
		Fees: wire.BridgeConfig{
			DepositFeeFlatSats:    0,
			DepositFeeBps:         0,
			WithdrawalFeeFlatSats: 0,
			WithdrawalFeeBps:      0,
			MinDepositSats:        1,
			MinWithdrawalSats:     1,
			MaxWithdrawalSats:     21_000_000_00000000,
		},
		ReorgDepth:  ReorgDepth,
		GraceSecs:   30,
		MerkleDepth: 20,
	}
	localPreset = Network{
		Fees: wire.BridgeConfig{
			MinDepositSats:    1,
			MinWithdrawalSats: 1,
			MaxWithdrawalSats: 21_000_000_00000000,
		},
		ReorgDepth:  ReorgDepth,
		GraceSecs:   1,
		MerkleDepth: 8,
	}
)
