// =============================
// File: internal/relay/plan.go
// =============================
package relay

import "github.com/gagliardetto/solana-go"

// Pool describes one AMM pool referenced by a swap instruction. SourceVault
// receives the input token, DestinationVault pays the output token.
type Pool struct {
	Address          solana.PublicKey
	Authority        solana.PublicKey
	SourceVault      solana.PublicKey
	DestinationVault solana.PublicKey
	PoolTokenMint    solana.PublicKey
	FeeAccount       solana.PublicKey
	ProgramID        solana.PublicKey
	SourceMint       solana.PublicKey
	DestinationMint  solana.PublicKey
}

// SwapPlan is the closed set of swap shapes the composer accepts: a single
// direct swap or two legs joined through a transit account. The unexported
// marker keeps the set closed to this package.
type SwapPlan interface {
	swapPlan()
	inputAmount() uint64
}

// DirectPlan swaps through one pool.
type DirectPlan struct {
	Pool         Pool
	AmountIn     uint64
	MinAmountOut uint64
}

func (DirectPlan) swapPlan()             {}
func (p DirectPlan) inputAmount() uint64 { return p.AmountIn }

// TransitivePlan swaps through two pools with an intermediate transit
// account.
type TransitivePlan struct {
	From                 Pool
	To                   Pool
	TransitMint          solana.PublicKey
	TransitAccount       solana.PublicKey
	NeedsTransitCreation bool
	AmountIn             uint64
	TransitMinAmountOut  uint64
	MinAmountOut         uint64
}

func (TransitivePlan) swapPlan()             {}
func (p TransitivePlan) inputAmount() uint64 { return p.AmountIn }
