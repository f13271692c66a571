// =============================
// File: internal/relay/errors.go
// =============================
package relay

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrPoolMissing occurs when a build request carries no usable pool set.
	ErrPoolMissing = errors.New("no pool provided for swap")

	// ErrInvalidAmount occurs when the input amount is zero or the
	// amount/minimum-out combination cannot form a valid swap.
	ErrInvalidAmount = errors.New("invalid swap amount")

	// ErrTransitMintUnresolved occurs when two pools share no common mint to
	// transit through.
	ErrTransitMintUnresolved = errors.New("transit mint unresolved")

	// ErrMissingSigner occurs when a build would produce a transaction the
	// caller cannot sign.
	ErrMissingSigner = errors.New("missing signing key")

	// ErrRecipientWrappedSOL occurs when a swap-and-send targets wrapped SOL
	// for a third-party recipient: the temporary destination account would
	// need the recipient's signature to close.
	ErrRecipientWrappedSOL = errors.New("wrapped SOL destination requires the owner as recipient")
)

// AccountResolutionError reports a failed token account address derivation.
// Derivation is deterministic and local, so this error is never retried.
type AccountResolutionError struct {
	Owner solana.PublicKey
	Mint  solana.PublicKey
	Err   error
}

func (e *AccountResolutionError) Error() string {
	return fmt.Sprintf("failed to derive token account for owner %s mint %s: %v", e.Owner, e.Mint, e.Err)
}

func (e *AccountResolutionError) Unwrap() error {
	return e.Err
}

// BuildError aborts a whole build; nothing is submitted on a BuildError.
type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed at %s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErr(stage string, err error) error {
	return &BuildError{Stage: stage, Err: err}
}
