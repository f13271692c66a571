// =============================
// File: internal/relay/program.go
// =============================
package relay

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Program IDs used by the builder.
var (
	TokenProgramID           = solana.TokenProgramID
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	WrappedSOLMint           = solana.SolMint
)

// System program instruction indexes (little-endian u32 prefix).
const (
	systemCreateAccountIndex uint32 = 0
	systemTransferIndex      uint32 = 2
)

// Token program instruction codes (single-byte prefix).
const (
	tokenInitializeAccountCode byte = 1
	tokenApproveCode           byte = 4
	tokenCloseAccountCode      byte = 9
)

// Relay program instruction discriminators extracted from the IDL.
var (
	directSwapDiscriminator     = []byte{248, 198, 158, 145, 225, 117, 135, 200}
	transitiveSwapDiscriminator = []byte{91, 198, 59, 131, 60, 251, 227, 121}
	createTransitDiscriminator  = []byte{129, 35, 214, 88, 17, 244, 71, 150}
)

// newCreateAccountInstruction allocates a fresh account funded by funder and
// assigned to owner.
func newCreateAccountInstruction(funder, newAccount, owner solana.PublicKey, lamports, space uint64) solana.Instruction {
	data := make([]byte, 4+8+8+32)
	binary.LittleEndian.PutUint32(data[0:4], systemCreateAccountIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:52], owner.Bytes())

	return solana.NewInstruction(
		solana.SystemProgramID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(funder, true, true),
			solana.NewAccountMeta(newAccount, true, true),
		},
		data,
	)
}

// newTransferInstruction moves lamports between system accounts.
func newTransferInstruction(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	return solana.NewInstruction(
		solana.SystemProgramID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(from, true, true),
			solana.NewAccountMeta(to, true, false),
		},
		data,
	)
}

// newInitializeAccountInstruction turns a freshly created account into a token
// account for the given mint.
func newInitializeAccountInstruction(account, mint, owner solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		TokenProgramID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(account, true, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(owner, false, false),
			solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		},
		[]byte{tokenInitializeAccountCode},
	)
}

// newApproveInstruction authorizes delegate to move exactly amount from source.
func newApproveInstruction(source, delegate, owner solana.PublicKey, amount uint64) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = tokenApproveCode
	binary.LittleEndian.PutUint64(data[1:9], amount)

	return solana.NewInstruction(
		TokenProgramID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(source, true, false),
			solana.NewAccountMeta(delegate, false, false),
			solana.NewAccountMeta(owner, false, true),
		},
		data,
	)
}

// newCloseAccountInstruction closes a token account, sending its lamports to
// destination.
func newCloseAccountInstruction(account, destination, owner solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		TokenProgramID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(account, true, false),
			solana.NewAccountMeta(destination, true, false),
			solana.NewAccountMeta(owner, false, true),
		},
		[]byte{tokenCloseAccountCode},
	)
}

// newCreateATAIdempotentInstruction creates the associated token account for
// wallet/mint if it does not already exist. Payer funds the rent.
func newCreateATAIdempotentInstruction(payer, wallet, mint, ata solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		AssociatedTokenProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: wallet, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: TokenProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SysVarRentPubkey, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // instruction code 1 for create idempotent
	)
}

// newDirectSwapInstruction builds the relay program instruction for a
// single-pool swap.
func newDirectSwapInstruction(
	programID solana.PublicKey,
	pool Pool,
	authority solana.PublicKey,
	userSource, userDestination solana.PublicKey,
	amountIn, minAmountOut uint64,
) solana.Instruction {
	data := make([]byte, 8+8+8)
	copy(data[0:8], directSwapDiscriminator)
	binary.LittleEndian.PutUint64(data[8:16], amountIn)
	binary.LittleEndian.PutUint64(data[16:24], minAmountOut)

	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(pool.Address, false, false),
		solana.NewAccountMeta(pool.Authority, false, false),
		solana.NewAccountMeta(authority, false, true),
		solana.NewAccountMeta(userSource, true, false),
		solana.NewAccountMeta(userDestination, true, false),
		solana.NewAccountMeta(pool.SourceVault, true, false),
		solana.NewAccountMeta(pool.DestinationVault, true, false),
		solana.NewAccountMeta(pool.PoolTokenMint, true, false),
		solana.NewAccountMeta(pool.FeeAccount, true, false),
		solana.NewAccountMeta(pool.ProgramID, false, false),
		solana.NewAccountMeta(TokenProgramID, false, false),
	}

	return solana.NewInstruction(programID, accountMetas, data)
}

// newTransitiveSwapInstruction builds the composite relay instruction covering
// both legs of a two-hop swap atomically. The relay program moves funds
// through the transit account internally, so no intermediate balance is ever
// observable between the legs.
func newTransitiveSwapInstruction(
	programID solana.PublicKey,
	from, to Pool,
	authority solana.PublicKey,
	userSource, transitAccount, userDestination solana.PublicKey,
	amountIn, transitMinAmountOut, minAmountOut uint64,
) solana.Instruction {
	data := make([]byte, 8+8+8+8)
	copy(data[0:8], transitiveSwapDiscriminator)
	binary.LittleEndian.PutUint64(data[8:16], amountIn)
	binary.LittleEndian.PutUint64(data[16:24], transitMinAmountOut)
	binary.LittleEndian.PutUint64(data[24:32], minAmountOut)

	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(authority, false, true),
		solana.NewAccountMeta(userSource, true, false),
		solana.NewAccountMeta(transitAccount, true, false),
		solana.NewAccountMeta(userDestination, true, false),
		solana.NewAccountMeta(from.Address, false, false),
		solana.NewAccountMeta(from.Authority, false, false),
		solana.NewAccountMeta(from.SourceVault, true, false),
		solana.NewAccountMeta(from.DestinationVault, true, false),
		solana.NewAccountMeta(from.PoolTokenMint, true, false),
		solana.NewAccountMeta(from.FeeAccount, true, false),
		solana.NewAccountMeta(from.ProgramID, false, false),
		solana.NewAccountMeta(to.Address, false, false),
		solana.NewAccountMeta(to.Authority, false, false),
		solana.NewAccountMeta(to.SourceVault, true, false),
		solana.NewAccountMeta(to.DestinationVault, true, false),
		solana.NewAccountMeta(to.PoolTokenMint, true, false),
		solana.NewAccountMeta(to.FeeAccount, true, false),
		solana.NewAccountMeta(to.ProgramID, false, false),
		solana.NewAccountMeta(TokenProgramID, false, false),
	}

	return solana.NewInstruction(programID, accountMetas, data)
}

// newCreateTransitAccountInstruction asks the relay program to open the
// transit token account for a two-hop swap. The relay program's create is
// idempotent.
func newCreateTransitAccountInstruction(
	programID solana.PublicKey,
	transitAccount, transitMint, user, feePayer solana.PublicKey,
) solana.Instruction {
	data := make([]byte, 8)
	copy(data[0:8], createTransitDiscriminator)

	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(transitAccount, true, false),
		solana.NewAccountMeta(transitMint, false, false),
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(feePayer, true, true),
		solana.NewAccountMeta(TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}

	return solana.NewInstruction(programID, accountMetas, data)
}
