// =============================
// File: internal/relay/compose.go
// =============================
package relay

import "github.com/gagliardetto/solana-go"

// ComposeSwap appends the swap instructions for the given plan to the build
// context.
//
// When a delegated authority is present, an approve instruction authorizing
// it to move exactly the input amount comes first; the bound keeps a
// compromised relay service from moving more than this swap's input. For a
// transitive plan the transit account creation, when needed, precedes the
// combined two-leg instruction.
func ComposeSwap(b *BuildContext, programID, feePayer, owner solana.PublicKey, plan SwapPlan, delegate *solana.PublicKey) error {
	authority := owner
	if delegate != nil {
		authority = *delegate
		b.AppendInstruction(newApproveInstruction(b.Source.Address, *delegate, owner, plan.inputAmount()))
	}

	switch p := plan.(type) {
	case DirectPlan:
		b.AppendInstruction(newDirectSwapInstruction(
			programID,
			p.Pool,
			authority,
			b.Source.Address,
			b.Destination.Address,
			p.AmountIn,
			p.MinAmountOut,
		))
	case TransitivePlan:
		if p.NeedsTransitCreation {
			b.AppendInstruction(newCreateTransitAccountInstruction(
				programID,
				p.TransitAccount,
				p.TransitMint,
				owner,
				feePayer,
			))
		}
		b.AppendInstruction(newTransitiveSwapInstruction(
			programID,
			p.From,
			p.To,
			authority,
			b.Source.Address,
			p.TransitAccount,
			b.Destination.Address,
			p.AmountIn,
			p.TransitMinAmountOut,
			p.MinAmountOut,
		))
	}
	return nil
}
