// =============================
// File: internal/jupiter/types.go
// =============================
package jupiter

import (
	"encoding/json"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Token describes one side of a routed swap.
type Token struct {
	Mint     solana.PublicKey
	Symbol   string
	Decimals uint8
	// Account is the user's token account for this mint, when one exists.
	Account *solana.PublicKey
}

// MarketInfo is one hop of a quoted route.
type MarketInfo struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   uint64 `json:"inAmount,string"`
	OutAmount  uint64 `json:"outAmount,string"`
}

// Route is a quoted swap path. Routes arrive ranked best-first from the
// quote service. Raw carries the untouched quote payload, echoed back when
// requesting the swap transaction.
type Route struct {
	InAmount             uint64          `json:"inAmount,string"`
	OutAmount            uint64          `json:"outAmount,string"`
	OtherAmountThreshold uint64          `json:"otherAmountThreshold,string"`
	PriceImpactPct       float64         `json:"priceImpactPct"`
	MarketInfos          []MarketInfo    `json:"marketInfos"`
	Raw                  json.RawMessage `json:"-"`
}

// rawAmount converts a user-facing decimal amount into raw token units.
// Values outside the signed 64-bit range clamp to the maximum instead of
// wrapping through IntPart truncation.
func rawAmount(amount decimal.Decimal, decimals uint8) uint64 {
	shifted := amount.Shift(int32(decimals))
	if shifted.Sign() <= 0 {
		return 0
	}
	if shifted.Cmp(decimal.NewFromInt(math.MaxInt64)) >= 0 {
		return math.MaxInt64
	}
	return uint64(shifted.IntPart())
}

// tokenAmount converts raw token units into a user-facing decimal amount.
func tokenAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.New(int64(raw), -int32(decimals))
}
