// =============================
// File: internal/relay/payload.go
// =============================
package relay

// SwapPayload is the concrete swap description reported to the relayer
// service alongside the signed transaction. Exactly one of the two fields is
// set.
type SwapPayload struct {
	Direct     *DirectSwapData     `json:"spl,omitempty"`
	Transitive *TransitiveSwapData `json:"spl_transitive,omitempty"`
}

// DirectSwapData describes a single-pool swap in the relayer API shape.
type DirectSwapData struct {
	ProgramID               string `json:"program_id"`
	AccountPubkey           string `json:"account_pubkey"`
	AuthorityPubkey         string `json:"authority_pubkey"`
	TransferAuthorityPubkey string `json:"transfer_authority_pubkey"`
	SourcePubkey            string `json:"source_pubkey"`
	DestinationPubkey       string `json:"destination_pubkey"`
	PoolTokenMintPubkey     string `json:"pool_token_mint_pubkey"`
	PoolFeeAccountPubkey    string `json:"pool_fee_account_pubkey"`
	AmountIn                uint64 `json:"amount_in"`
	MinimumAmountOut        uint64 `json:"minimum_amount_out"`
}

// TransitiveSwapData describes a two-leg swap in the relayer API shape.
type TransitiveSwapData struct {
	From                   DirectSwapData `json:"from"`
	To                     DirectSwapData `json:"to"`
	TransitTokenMintPubkey string         `json:"transit_token_mint_pubkey"`
}

func directSwapData(pool Pool, transferAuthority string, source, destination string, amountIn, minAmountOut uint64) DirectSwapData {
	return DirectSwapData{
		ProgramID:               pool.ProgramID.String(),
		AccountPubkey:           pool.Address.String(),
		AuthorityPubkey:         pool.Authority.String(),
		TransferAuthorityPubkey: transferAuthority,
		SourcePubkey:            source,
		DestinationPubkey:       destination,
		PoolTokenMintPubkey:     pool.PoolTokenMint.String(),
		PoolFeeAccountPubkey:    pool.FeeAccount.String(),
		AmountIn:                amountIn,
		MinimumAmountOut:        minAmountOut,
	}
}

// payloadForPlan reports the swap the assembler composed, in the shape the
// relayer service expects.
func payloadForPlan(plan SwapPlan, b *BuildContext, transferAuthority string) SwapPayload {
	switch p := plan.(type) {
	case DirectPlan:
		data := directSwapData(p.Pool, transferAuthority,
			b.Source.Address.String(), b.Destination.Address.String(),
			p.AmountIn, p.MinAmountOut)
		return SwapPayload{Direct: &data}
	case TransitivePlan:
		data := TransitiveSwapData{
			From: directSwapData(p.From, transferAuthority,
				b.Source.Address.String(), p.TransitAccount.String(),
				p.AmountIn, p.TransitMinAmountOut),
			To: directSwapData(p.To, transferAuthority,
				p.TransitAccount.String(), b.Destination.Address.String(),
				p.TransitMinAmountOut, p.MinAmountOut),
			TransitTokenMintPubkey: p.TransitMint.String(),
		}
		return SwapPayload{Transitive: &data}
	}
	return SwapPayload{}
}
