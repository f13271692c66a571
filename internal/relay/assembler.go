// =============================
// File: internal/relay/assembler.go
// =============================
package relay

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

// ChainClient is the slice of the RPC client the assembler needs.
type ChainClient interface {
	ChainReader
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// Assembler builds the relayed swap transactions: top-up of the user's relay
// balance via a swap, and swap-and-send. Each invocation owns its own
// BuildContext, so concurrent builds for different transactions are safe.
type Assembler struct {
	chain                ChainClient
	resolver             *Resolver
	transit              *TransitManager
	feePayer             solana.PublicKey
	programID            solana.PublicKey
	lamportsPerSignature uint64
	logger               *zap.Logger
}

// NewAssembler wires an assembler with its collaborators. programID is the
// relay program; feePayer is the relayer account that pays network fees and
// gets repaid through the final transfer instruction.
func NewAssembler(
	chain ChainClient,
	feePayer solana.PublicKey,
	programID solana.PublicKey,
	maxPrimaryInstructions int,
	lamportsPerSignature uint64,
	logger *zap.Logger,
) *Assembler {
	return &Assembler{
		chain:                chain,
		resolver:             NewResolver(chain, feePayer, maxPrimaryInstructions, logger),
		transit:              NewTransitManager(chain, logger),
		feePayer:             feePayer,
		programID:            programID,
		lamportsPerSignature: lamportsPerSignature,
		logger:               logger.Named("assembler"),
	}
}

// BuildParams describe one swap build.
type BuildParams struct {
	Owner               *wallet.Wallet
	SourceMint          solana.PublicKey
	DestinationMint     solana.PublicKey
	AmountIn            uint64
	MinAmountOut        uint64
	// TransitMinAmountOut is the slippage floor of the first leg; required
	// for two-pool swaps.
	TransitMinAmountOut uint64
	// Pools holds one pool for a direct swap, two for a transitive swap.
	Pools []Pool
	// SpendingNativeSOL marks a wrapped-SOL source funded from the owner's
	// native balance rather than an existing wrapped account.
	SpendingNativeSOL bool
	// Recipient owns the destination account for swap-and-send. Zero value
	// means the owner itself.
	Recipient solana.PublicKey
	// DestinationAddress is an externally known destination account; when
	// set, no destination resolution happens.
	DestinationAddress *solana.PublicKey
	// DelegateKey is the throwaway transfer authority the relay service acts
	// through. It signs the transaction and is approved for exactly AmountIn.
	DelegateKey *solana.PrivateKey
}

// BuildResult is the finished product of one build.
type BuildResult struct {
	// Transaction is the primary transaction, partially signed; the relayer
	// adds the fee payer signature.
	Transaction *solana.Transaction
	// OverflowTransaction, when non-nil, carries prerequisite instructions
	// and must be submitted and confirmed before Transaction.
	OverflowTransaction *solana.Transaction
	// Payload is the swap description reported to the relayer service.
	Payload SwapPayload
	// TotalFeeLamports is the user's full liability repaid to the relayer.
	TotalFeeLamports uint64
}

// TopUpWithSwap swaps one of the user's tokens into SOL credited to the
// relayer, replenishing the user's relay balance. The swap lands in a
// temporary wrapped account that is closed into the fee payer.
func (a *Assembler) TopUpWithSwap(ctx context.Context, p BuildParams) (*BuildResult, error) {
	p.DestinationMint = WrappedSOLMint
	p.DestinationAddress = nil
	p.Recipient = solana.PublicKey{}
	return a.build(ctx, "top_up_with_swap", p)
}

// SwapAndSend swaps and delivers the output to the recipient's account.
func (a *Assembler) SwapAndSend(ctx context.Context, p BuildParams) (*BuildResult, error) {
	return a.build(ctx, "swap_and_send", p)
}

func (a *Assembler) build(ctx context.Context, product string, p BuildParams) (*BuildResult, error) {
	if p.Owner == nil {
		return nil, ErrMissingSigner
	}
	if p.AmountIn == 0 || p.MinAmountOut == 0 {
		return nil, buildErr("validate", ErrInvalidAmount)
	}
	if len(p.Pools) == 0 || len(p.Pools) > 2 {
		return nil, buildErr("validate", ErrPoolMissing)
	}

	owner := p.Owner.PublicKey
	destOwner := owner
	if !p.Recipient.IsZero() {
		destOwner = p.Recipient
	}
	// A throwaway wrapped-SOL destination would be owned by the recipient,
	// whose signature for the close instruction the builder cannot supply.
	if p.DestinationMint.Equals(WrappedSOLMint) && p.DestinationAddress == nil && !destOwner.Equals(owner) {
		return nil, buildErr("validate", ErrRecipientWrappedSOL)
	}

	b := NewBuildContext()
	b.AddSigner(p.Owner.PrivateKey)

	if err := a.resolver.ResolveSource(ctx, b, owner, p.SourceMint, p.AmountIn, p.SpendingNativeSOL); err != nil {
		return nil, err
	}
	if err := a.resolver.ResolveDestination(ctx, b, destOwner, p.DestinationMint, p.DestinationAddress); err != nil {
		return nil, err
	}

	plan, err := a.planSwap(ctx, owner, p)
	if err != nil {
		return nil, err
	}

	var delegatePub *solana.PublicKey
	if p.DelegateKey != nil {
		pub := p.DelegateKey.PublicKey()
		delegatePub = &pub
		b.AddSigner(*p.DelegateKey)
	}

	if err := ComposeSwap(b, a.programID, a.feePayer, owner, plan, delegatePub); err != nil {
		return nil, err
	}

	b.closeTempAccounts()

	// Fee payer signs in addition to the collected signers, once more when an
	// overflow transaction is submitted alongside the primary one.
	signatures := len(b.Signers()) + 1
	if len(b.OverflowInstructions) > 0 {
		signatures++
	}
	b.SetSignatureFees(a.lamportsPerSignature, signatures)
	totalFee := b.TotalFee()
	b.AppendInstruction(newTransferInstruction(owner, a.feePayer, totalFee))

	blockhash, err := a.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(b.Instructions, blockhash, solana.TransactionPayer(a.feePayer))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := partialSign(tx, b.Signers()); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	var overflowTx *solana.Transaction
	if len(b.OverflowInstructions) > 0 {
		overflowTx, err = solana.NewTransaction(b.OverflowInstructions, blockhash, solana.TransactionPayer(a.feePayer))
		if err != nil {
			return nil, fmt.Errorf("failed to create overflow transaction: %w", err)
		}
		if err := partialSign(overflowTx, b.Signers()); err != nil {
			return nil, fmt.Errorf("failed to sign overflow transaction: %w", err)
		}
	}

	transferAuthority := owner.String()
	if delegatePub != nil {
		transferAuthority = delegatePub.String()
	}

	a.logger.Info("Assembled relayed swap transaction",
		zap.String("product", product),
		zap.String("owner", owner.String()),
		zap.Uint64("amount_in", p.AmountIn),
		zap.Uint64("total_fee_lamports", totalFee),
		zap.Int("instructions", len(b.Instructions)),
		zap.Bool("overflow", overflowTx != nil))

	return &BuildResult{
		Transaction:         tx,
		OverflowTransaction: overflowTx,
		Payload:             payloadForPlan(plan, b, transferAuthority),
		TotalFeeLamports:    totalFee,
	}, nil
}

func (a *Assembler) planSwap(ctx context.Context, owner solana.PublicKey, p BuildParams) (SwapPlan, error) {
	if len(p.Pools) == 1 {
		return DirectPlan{
			Pool:         p.Pools[0],
			AmountIn:     p.AmountIn,
			MinAmountOut: p.MinAmountOut,
		}, nil
	}

	if p.TransitMinAmountOut == 0 {
		return nil, buildErr("transit", ErrInvalidAmount)
	}

	transit, err := a.transit.Resolve(ctx, owner, p.Pools[0], p.Pools[1])
	if err != nil {
		return nil, err
	}

	return TransitivePlan{
		From:                 p.Pools[0],
		To:                   p.Pools[1],
		TransitMint:          transit.Mint,
		TransitAccount:       transit.Address,
		NeedsTransitCreation: transit.NeedsCreation,
		AmountIn:             p.AmountIn,
		TransitMinAmountOut:  p.TransitMinAmountOut,
		MinAmountOut:         p.MinAmountOut,
	}, nil
}

func partialSign(tx *solana.Transaction, keys []solana.PrivateKey) error {
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range keys {
			if keys[i].PublicKey().Equals(key) {
				return &keys[i]
			}
		}
		return nil
	})
	return err
}
