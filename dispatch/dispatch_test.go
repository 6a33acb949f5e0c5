// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatch

import (
	"testing"

	"github.com/dogebridge/core/principal"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	called string
}

func (r *recordingHandler) Initialize(args interface{}) error               { r.called = "initialize"; return nil }
func (r *recordingHandler) BlockUpdate(args interface{}) error              { r.called = "block_update"; return nil }
func (r *recordingHandler) RequestWithdrawal(args interface{}) error        { r.called = "request_withdrawal"; return nil }
func (r *recordingHandler) ProcessWithdrawal(args interface{}) error        { r.called = "process_withdrawal"; return nil }
func (r *recordingHandler) OperatorWithdrawFees(args interface{}) error     { r.called = "operator_withdraw_fees"; return nil }
func (r *recordingHandler) ProcessManualDeposit(args interface{}) error     { r.called = "process_manual_deposit"; return nil }
func (r *recordingHandler) ProcessReplayWithdrawal(args interface{}) error  { r.called = "process_replay_withdrawal"; return nil }
func (r *recordingHandler) ProcessMintGroup(args interface{}) error         { r.called = "process_mint_group"; return nil }
func (r *recordingHandler) ProcessReorgBlocks(args interface{}) error       { r.called = "process_reorg_blocks"; return nil }
func (r *recordingHandler) ProcessMintGroupAutoAdvance(args interface{}) error {
	r.called = "process_mint_group_auto_advance"
	return nil
}
func (r *recordingHandler) SnapshotWithdrawals(args interface{}) error { r.called = "snapshot_withdrawals"; return nil }

func TestDecodeHeaderSplitsOpcodeAndBumpSeeds(t *testing.T) {
	require := require.New(t)
	data := []byte{3, 1, 2, 3, 4, 5, 6, 7, 0xAA, 0xBB}
	hdr, err := DecodeHeader(data)
	require.NoError(err)
	require.Equal(OpProcessWithdrawal, hdr.Opcode)
	require.Equal([HeaderSize - 1]byte{1, 2, 3, 4, 5, 6, 7}, hdr.BumpSeeds)
}

func TestDecodeHeaderRejectsShortInput(t *testing.T) {
	_, err := DecodeHeader([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDispatchRoutesAllOpcodes(t *testing.T) {
	require := require.New(t)
	d := NewDispatcher()
	h := &recordingHandler{}

	for op, name := range opcodeNames {
		data := append([]byte{byte(op), 0, 0, 0, 0, 0, 0, 0}, []byte("payload")...)
		require.NoError(d.Dispatch(data, nil, h))
		require.Equal(name, h.called)
	}
}

func TestDispatchRejectsUnknownOpcode(t *testing.T) {
	d := NewDispatcher()
	h := &recordingHandler{}
	data := make([]byte, HeaderSize)
	data[0] = 200
	require.Error(t, d.Dispatch(data, nil, h))
}

func TestDeriveAddressesAreDomainSeparatedAndDeterministic(t *testing.T) {
	require := require.New(t)
	bridgeProgram := principal.Derive("program")
	a1 := DeriveBridgeState(bridgeProgram)
	a2 := DeriveBridgeState(bridgeProgram)
	require.Equal(a1, a2)

	user := principal.Derive("user")
	manualClaimProgram := principal.Derive("manual-claim-program")
	m := DeriveManualClaimState(user, manualClaimProgram)
	require.NotEqual(a1, m)

	writer := principal.Derive("writer")
	bufferProgram := principal.Derive("buffer-program")
	mintBuf := DeriveMintBuffer(writer, bufferProgram)
	txoBuf := DeriveTXOBuffer(writer, bufferProgram)
	require.NotEqual(mintBuf, txoBuf)
}
