// =============================
// File: internal/relay/fees.go
// =============================
package relay

// Fee bookkeeping over the build context. AccountCreationFee must equal the
// rent-exempt minimums of every account created and not refunded within the
// same build; AdditionalPaybackFee tracks lamports fronted by the relayer
// that the user repays, and is never negative.

// AddAccountCreationFee charges rent for an account opened during the build.
func (b *BuildContext) AddAccountCreationFee(lamports uint64) {
	b.AccountCreationFee += lamports
}

// RefundAccountCreationFee cancels rent for an account whose close
// instruction refunds the fee payer within the same build.
func (b *BuildContext) RefundAccountCreationFee(lamports uint64) {
	if lamports > b.AccountCreationFee {
		b.AccountCreationFee = 0
		return
	}
	b.AccountCreationFee -= lamports
}

// AddPaybackFee records lamports the relayer fronted on the user's behalf.
func (b *BuildContext) AddPaybackFee(lamports uint64) {
	b.AdditionalPaybackFee += lamports
}

// SetSignatureFees prices the signatures the finished transaction will carry.
func (b *BuildContext) SetSignatureFees(lamportsPerSignature uint64, signatures int) {
	b.TransactionFee = lamportsPerSignature * uint64(signatures)
}

// TotalFee is the full lamport liability the user repays the relayer.
func (b *BuildContext) TotalFee() uint64 {
	return b.TransactionFee + b.AccountCreationFee + b.AdditionalPaybackFee
}
