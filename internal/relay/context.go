// =============================
// File: internal/relay/context.go
// =============================
package relay

import "github.com/gagliardetto/solana-go"

// TokenAccountRef identifies the token account resolved for one side of a
// swap. Immutable once resolved for a build.
type TokenAccountRef struct {
	Owner           solana.PublicKey
	Mint            solana.PublicKey
	Address         solana.PublicKey
	IsNativeWrapped bool
}

// tempAccount is a throwaway account opened during a build. It either gets a
// close instruction before the build is finalized, or stays open with its
// rent already reflected in the fee totals.
type tempAccount struct {
	key     solana.PrivateKey
	rent    uint64
	closeTo solana.PublicKey
	// authority is the token-account owner the close instruction names; the
	// close fails on-chain under any other signer.
	authority solana.PublicKey
	// refundCreationFee marks accounts whose close instruction refunds rent
	// to the fee payer, cancelling the creation fee charged earlier.
	refundCreationFee bool
}

// BuildContext accumulates the state of a single transaction build. It is
// owned exclusively by one Assembler invocation; each build step takes the
// context and returns it updated.
type BuildContext struct {
	// Instructions is append-only during the build.
	Instructions []solana.Instruction
	// OverflowInstructions hold prerequisite instructions that must land in a
	// separate transaction submitted before the primary one.
	OverflowInstructions []solana.Instruction

	Source      TokenAccountRef
	Destination TokenAccountRef

	AccountCreationFee   uint64
	AdditionalPaybackFee uint64
	TransactionFee       uint64

	signers   []solana.PrivateKey
	signerSet map[solana.PublicKey]struct{}
	temps     []tempAccount
}

// NewBuildContext creates an empty build context.
func NewBuildContext() *BuildContext {
	return &BuildContext{
		signerSet: make(map[solana.PublicKey]struct{}),
	}
}

// AppendInstruction adds an instruction to the primary transaction.
func (b *BuildContext) AppendInstruction(ix solana.Instruction) *BuildContext {
	b.Instructions = append(b.Instructions, ix)
	return b
}

// AppendOverflow adds an instruction to the overflow transaction.
func (b *BuildContext) AppendOverflow(ix solana.Instruction) *BuildContext {
	b.OverflowInstructions = append(b.OverflowInstructions, ix)
	return b
}

// AddSigner records a required signer, deduplicated, insertion order
// preserved.
func (b *BuildContext) AddSigner(key solana.PrivateKey) *BuildContext {
	pub := key.PublicKey()
	if _, ok := b.signerSet[pub]; ok {
		return b
	}
	b.signerSet[pub] = struct{}{}
	b.signers = append(b.signers, key)
	return b
}

// Signers returns the collected signer keys in insertion order.
func (b *BuildContext) Signers() []solana.PrivateKey {
	return b.signers
}

// HasSigner reports whether the given key is in the signer set.
func (b *BuildContext) HasSigner(pub solana.PublicKey) bool {
	_, ok := b.signerSet[pub]
	return ok
}

// registerTempAccount records a throwaway account that must sign its own
// creation and be closed before the build finalizes. authority is the
// token-account owner the account was initialized with.
func (b *BuildContext) registerTempAccount(key solana.PrivateKey, rent uint64, closeTo, authority solana.PublicKey, refundCreationFee bool) {
	b.AddSigner(key)
	b.temps = append(b.temps, tempAccount{
		key:               key,
		rent:              rent,
		closeTo:           closeTo,
		authority:         authority,
		refundCreationFee: refundCreationFee,
	})
}

// closeTempAccounts appends a close instruction for every temporary account,
// each under the authority it was initialized with, and applies the matching
// fee refunds.
func (b *BuildContext) closeTempAccounts() {
	for _, temp := range b.temps {
		b.AppendInstruction(newCloseAccountInstruction(temp.key.PublicKey(), temp.closeTo, temp.authority))
		if temp.refundCreationFee {
			b.RefundAccountCreationFee(temp.rent)
		}
	}
}
