// =============================
// File: internal/relay/payload_test.go
// =============================
package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapPayloadDirectJSON(t *testing.T) {
	payload := SwapPayload{Direct: &DirectSwapData{
		ProgramID:               "prog",
		AccountPubkey:           "pool",
		AuthorityPubkey:         "auth",
		TransferAuthorityPubkey: "xfer",
		SourcePubkey:            "src",
		DestinationPubkey:       "dst",
		PoolTokenMintPubkey:     "pmint",
		PoolFeeAccountPubkey:    "pfee",
		AmountIn:                100,
		MinimumAmountOut:        90,
	}}

	out, err := json.Marshal(payload)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"spl": {
			"program_id": "prog",
			"account_pubkey": "pool",
			"authority_pubkey": "auth",
			"transfer_authority_pubkey": "xfer",
			"source_pubkey": "src",
			"destination_pubkey": "dst",
			"pool_token_mint_pubkey": "pmint",
			"pool_fee_account_pubkey": "pfee",
			"amount_in": 100,
			"minimum_amount_out": 90
		}
	}`, string(out))
}

func TestSwapPayloadTransitiveJSON(t *testing.T) {
	leg := func(src, dst string, in, out uint64) DirectSwapData {
		return DirectSwapData{
			ProgramID:               "prog",
			AccountPubkey:           "pool-" + src,
			AuthorityPubkey:         "auth",
			TransferAuthorityPubkey: "xfer",
			SourcePubkey:            src,
			DestinationPubkey:       dst,
			PoolTokenMintPubkey:     "pmint",
			PoolFeeAccountPubkey:    "pfee",
			AmountIn:                in,
			MinimumAmountOut:        out,
		}
	}
	payload := SwapPayload{Transitive: &TransitiveSwapData{
		From:                   leg("src", "transit", 100, 90),
		To:                     leg("transit", "dst", 90, 80),
		TransitTokenMintPubkey: "tmint",
	}}

	out, err := json.Marshal(payload)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"spl_transitive": {
			"from": {
				"program_id": "prog",
				"account_pubkey": "pool-src",
				"authority_pubkey": "auth",
				"transfer_authority_pubkey": "xfer",
				"source_pubkey": "src",
				"destination_pubkey": "transit",
				"pool_token_mint_pubkey": "pmint",
				"pool_fee_account_pubkey": "pfee",
				"amount_in": 100,
				"minimum_amount_out": 90
			},
			"to": {
				"program_id": "prog",
				"account_pubkey": "pool-transit",
				"authority_pubkey": "auth",
				"transfer_authority_pubkey": "xfer",
				"source_pubkey": "transit",
				"destination_pubkey": "dst",
				"pool_token_mint_pubkey": "pmint",
				"pool_fee_account_pubkey": "pfee",
				"amount_in": 90,
				"minimum_amount_out": 80
			},
			"transit_token_mint_pubkey": "tmint"
		}
	}`, string(out))
}
