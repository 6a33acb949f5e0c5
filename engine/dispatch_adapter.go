// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"context"
	"fmt"

	"github.com/dogebridge/core/buffer"
	"github.com/dogebridge/core/deposit"
	"github.com/dogebridge/core/principal"
	"github.com/dogebridge/core/wire"
	"github.com/dogebridge/core/withdrawal"
)

// DispatchAdapter implements dispatch.Handler over a *Bridge, type-
// asserting each opcode's args to the engine request struct its typed
// method expects. A Bridge cannot implement dispatch.Handler directly:
// its typed methods (Initialize(InitializeRequest), BlockUpdate(ctx,
// BlockUpdateRequest), ...) already use these names with different,
// caller-friendly signatures; DispatchAdapter is the byte/opcode-level
// seam, the typed methods are the ergonomic Go API cmd/bridgesim and
// tests call directly.
type DispatchAdapter struct {
	Bridge *Bridge
}

// NewDispatchAdapter wraps b as a dispatch.Handler.
func NewDispatchAdapter(b *Bridge) *DispatchAdapter {
	return &DispatchAdapter{Bridge: b}
}

func (a *DispatchAdapter) Initialize(args interface{}) error {
	req, ok := args.(InitializeRequest)
	if !ok {
		return fmt.Errorf("dispatch: initialize expects engine.InitializeRequest, got %T", args)
	}
	return a.Bridge.Initialize(req)
}

func (a *DispatchAdapter) BlockUpdate(args interface{}) error {
	req, ok := args.(BlockUpdateRequest)
	if !ok {
		return fmt.Errorf("dispatch: block_update expects engine.BlockUpdateRequest, got %T", args)
	}
	return a.Bridge.BlockUpdate(context.Background(), req)
}

func (a *DispatchAdapter) RequestWithdrawal(args interface{}) error {
	req, ok := args.(wire.WithdrawalRequest)
	if !ok {
		return fmt.Errorf("dispatch: request_withdrawal expects wire.WithdrawalRequest, got %T", args)
	}
	_, err := a.Bridge.RequestWithdrawal(req)
	return err
}

func (a *DispatchAdapter) ProcessWithdrawal(args interface{}) error {
	req, ok := args.(withdrawal.ProcessWithdrawalInput)
	if !ok {
		return fmt.Errorf("dispatch: process_withdrawal expects withdrawal.ProcessWithdrawalInput, got %T", args)
	}
	return a.Bridge.ProcessWithdrawal(req)
}

func (a *DispatchAdapter) OperatorWithdrawFees(args interface{}) error {
	caller, ok := args.(principal.Principal)
	if !ok {
		return fmt.Errorf("dispatch: operator_withdraw_fees expects principal.Principal, got %T", args)
	}
	_, err := a.Bridge.OperatorWithdrawFees(caller)
	return err
}

// manualClaimArgs bundles opcode 5's (user, request) pair.
type manualClaimArgs struct {
	User    principal.Principal
	Request deposit.ManualClaimRequest
}

func (a *DispatchAdapter) ProcessManualDeposit(args interface{}) error {
	req, ok := args.(manualClaimArgs)
	if !ok {
		return fmt.Errorf("dispatch: process_manual_deposit expects engine.manualClaimArgs, got %T", args)
	}
	return a.Bridge.SubmitManualClaim(req.User, req.Request)
}

func (a *DispatchAdapter) ProcessReplayWithdrawal(args interface{}) error {
	buf, ok := args.(*buffer.Generic)
	if !ok {
		return fmt.Errorf("dispatch: process_replay_withdrawal expects *buffer.Generic, got %T", args)
	}
	return a.Bridge.ProcessReplayWithdrawal(buf)
}

// mintGroupArgs bundles opcode 7's (groupIdx, shouldUnlock) pair.
type mintGroupArgs struct {
	GroupIdx     int
	ShouldUnlock bool
}

func (a *DispatchAdapter) ProcessMintGroup(args interface{}) error {
	req, ok := args.(mintGroupArgs)
	if !ok {
		return fmt.Errorf("dispatch: process_mint_group expects engine.mintGroupArgs, got %T", args)
	}
	return a.Bridge.ProcessMintGroup(req.GroupIdx, req.ShouldUnlock)
}

func (a *DispatchAdapter) ProcessReorgBlocks(args interface{}) error {
	req, ok := args.(ProcessReorgBlocksRequest)
	if !ok {
		return fmt.Errorf("dispatch: process_reorg_blocks expects engine.ProcessReorgBlocksRequest, got %T", args)
	}
	return a.Bridge.ProcessReorgBlocks(context.Background(), req)
}

// mintGroupAutoAdvanceArgs bundles opcode 9's arguments.
type mintGroupAutoAdvanceArgs struct {
	GroupIdx         int
	ShouldUnlock     bool
	AdvanceTxoCursor func() error
}

func (a *DispatchAdapter) ProcessMintGroupAutoAdvance(args interface{}) error {
	req, ok := args.(mintGroupAutoAdvanceArgs)
	if !ok {
		return fmt.Errorf("dispatch: process_mint_group_auto_advance expects engine.mintGroupAutoAdvanceArgs, got %T", args)
	}
	return a.Bridge.ProcessMintGroupAutoAdvance(req.GroupIdx, req.ShouldUnlock, req.AdvanceTxoCursor)
}

func (a *DispatchAdapter) SnapshotWithdrawals(args interface{}) error {
	a.Bridge.SnapshotWithdrawals()
	return nil
}
