// =============================
// File: internal/relay/accounts.go
// =============================
package relay

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// ChainReader is the read-only slice of the RPC client the resolver needs.
type ChainReader interface {
	AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error)
	MinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
}

// tokenAccountSize is the byte size of an SPL token account; its rent-exempt
// minimum is the cost of every account the builder opens.
const tokenAccountSize = 165

// Resolver decides which token account serves each side of a swap: an
// existing account, a fresh associated account, or a throwaway
// wrapped-native account.
type Resolver struct {
	chain    ChainReader
	feePayer solana.PublicKey
	// maxPrimaryInstructions is the conservative threshold beyond which
	// destination account creation is routed into the overflow transaction.
	maxPrimaryInstructions int
	logger                 *zap.Logger
}

// NewResolver creates a resolver. feePayer is the relayer account fronting
// rent and fees.
func NewResolver(chain ChainReader, feePayer solana.PublicKey, maxPrimaryInstructions int, logger *zap.Logger) *Resolver {
	return &Resolver{
		chain:                  chain,
		feePayer:               feePayer,
		maxPrimaryInstructions: maxPrimaryInstructions,
		logger:                 logger.Named("account-resolver"),
	}
}

// ResolveSource determines the instruction-level source account.
//
// When the user spends native SOL against a wrapped-SOL mint, a throwaway
// wrapped account is created: the fee payer funds its rent, the user
// transfers the exact input amount into it, and it is initialized for the
// wrapped-SOL mint. The account is registered as temporary so the finalize
// step closes it, and the fronted rent lands in AdditionalPaybackFee.
func (r *Resolver) ResolveSource(ctx context.Context, b *BuildContext, owner, mint solana.PublicKey, amountIn uint64, spendingNativeSOL bool) error {
	if mint.Equals(WrappedSOLMint) && spendingNativeSOL {
		rent, err := r.chain.MinimumBalanceForRentExemption(ctx, tokenAccountSize)
		if err != nil {
			return fmt.Errorf("failed to get rent-exempt minimum: %w", err)
		}

		tempKey, err := solana.NewRandomPrivateKey()
		if err != nil {
			return fmt.Errorf("failed to generate wrapped account keypair: %w", err)
		}
		tempPub := tempKey.PublicKey()

		b.AppendInstruction(newCreateAccountInstruction(r.feePayer, tempPub, TokenProgramID, rent, tokenAccountSize))
		b.AppendInstruction(newTransferInstruction(owner, tempPub, amountIn))
		b.AppendInstruction(newInitializeAccountInstruction(tempPub, mint, owner))

		b.registerTempAccount(tempKey, rent, r.feePayer, owner, false)
		b.AddPaybackFee(rent)

		b.Source = TokenAccountRef{Owner: owner, Mint: mint, Address: tempPub, IsNativeWrapped: true}

		r.logger.Debug("Created temporary wrapped-SOL source account",
			zap.String("account", tempPub.String()),
			zap.Uint64("amount_in", amountIn),
			zap.Uint64("rent", rent))
		return nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return &AccountResolutionError{Owner: owner, Mint: mint, Err: err}
	}
	b.Source = TokenAccountRef{Owner: owner, Mint: mint, Address: ata}
	return nil
}

// ResolveDestination determines the instruction-level destination account.
//
// A caller-supplied address is used as-is. A wrapped-SOL destination gets a
// throwaway account that is closed after the swap with its rent refunded to
// the fee payer, so its net rent cost to the user is zero. An ordinary mint
// resolves to the owner's associated account, with a create instruction
// appended when the account does not exist yet; that instruction moves to
// the overflow transaction once the primary already carries the
// wrapped-native source sequence.
func (r *Resolver) ResolveDestination(ctx context.Context, b *BuildContext, owner, mint solana.PublicKey, known *solana.PublicKey) error {
	if known != nil {
		b.Destination = TokenAccountRef{Owner: owner, Mint: mint, Address: *known}
		return nil
	}

	if mint.Equals(WrappedSOLMint) {
		rent, err := r.chain.MinimumBalanceForRentExemption(ctx, tokenAccountSize)
		if err != nil {
			return fmt.Errorf("failed to get rent-exempt minimum: %w", err)
		}

		tempKey, err := solana.NewRandomPrivateKey()
		if err != nil {
			return fmt.Errorf("failed to generate wrapped account keypair: %w", err)
		}
		tempPub := tempKey.PublicKey()

		b.AppendInstruction(newCreateAccountInstruction(r.feePayer, tempPub, TokenProgramID, rent, tokenAccountSize))
		b.AppendInstruction(newInitializeAccountInstruction(tempPub, mint, owner))

		// Creation charged now, refunded when the close instruction is
		// appended: net zero rent for the user.
		b.registerTempAccount(tempKey, rent, r.feePayer, owner, true)
		b.AddAccountCreationFee(rent)

		b.Destination = TokenAccountRef{Owner: owner, Mint: mint, Address: tempPub, IsNativeWrapped: true}

		r.logger.Debug("Created temporary wrapped-SOL destination account",
			zap.String("account", tempPub.String()))
		return nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return &AccountResolutionError{Owner: owner, Mint: mint, Err: err}
	}

	exists, err := r.chain.AccountExists(ctx, ata)
	if err != nil {
		return fmt.Errorf("failed to check destination account: %w", err)
	}

	if !exists {
		rent, err := r.chain.MinimumBalanceForRentExemption(ctx, tokenAccountSize)
		if err != nil {
			return fmt.Errorf("failed to get rent-exempt minimum: %w", err)
		}

		ix := newCreateATAIdempotentInstruction(r.feePayer, owner, mint, ata)
		if len(b.Instructions) >= r.maxPrimaryInstructions {
			b.AppendOverflow(ix)
			r.logger.Debug("Destination account creation routed to overflow transaction",
				zap.String("account", ata.String()),
				zap.Int("primary_instructions", len(b.Instructions)))
		} else {
			b.AppendInstruction(ix)
		}
		b.AddAccountCreationFee(rent)
	}

	b.Destination = TokenAccountRef{Owner: owner, Mint: mint, Address: ata}
	return nil
}
