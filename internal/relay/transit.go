// =============================
// File: internal/relay/transit.go
// =============================
package relay

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// TransitAccount is the intermediate token account a two-hop swap moves
// funds through.
type TransitAccount struct {
	Address       solana.PublicKey
	Mint          solana.PublicKey
	NeedsCreation bool
}

// TransitManager resolves the transit account for a multi-hop swap.
type TransitManager struct {
	chain  ChainReader
	logger *zap.Logger
}

func NewTransitManager(chain ChainReader, logger *zap.Logger) *TransitManager {
	return &TransitManager{
		chain:  chain,
		logger: logger.Named("transit-manager"),
	}
}

// Resolve derives the mint the swap transits through, the deterministic
// transit account address for the owner, and whether the account still needs
// creation. A failed existence check degrades to "needs creation": the relay
// program's transit create is idempotent, so a redundant create wastes an
// instruction but cannot fail the swap.
func (m *TransitManager) Resolve(ctx context.Context, owner solana.PublicKey, from, to Pool) (*TransitAccount, error) {
	if !from.DestinationMint.Equals(to.SourceMint) {
		return nil, buildErr("transit", ErrTransitMintUnresolved)
	}
	mint := from.DestinationMint

	address, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, &AccountResolutionError{Owner: owner, Mint: mint, Err: err}
	}

	exists, err := m.chain.AccountExists(ctx, address)
	if err != nil {
		m.logger.Warn("Transit account existence check failed, assuming account needs creation",
			zap.String("account", address.String()),
			zap.Error(err))
		exists = false
	}

	return &TransitAccount{
		Address:       address,
		Mint:          mint,
		NeedsCreation: !exists,
	}, nil
}
