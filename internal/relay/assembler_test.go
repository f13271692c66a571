// =============================
// File: internal/relay/assembler_test.go
// =============================
package relay

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

const testLamportsPerSig uint64 = 5000

func newTestAssembler(chain ChainClient) (*Assembler, solana.PublicKey) {
	feePayer := solana.NewWallet().PublicKey()
	programID := solana.NewWallet().PublicKey()
	return NewAssembler(chain, feePayer, programID, 3, testLamportsPerSig, zap.NewNop()), feePayer
}

func TestTopUpWithSwapDirect(t *testing.T) {
	chain := newFakeChain()
	assembler, feePayer := newTestAssembler(chain)
	owner := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	sourceMint := solana.NewWallet().PublicKey()

	result, err := assembler.TopUpWithSwap(context.Background(), BuildParams{
		Owner:        owner,
		SourceMint:   sourceMint,
		AmountIn:     1_000_000,
		MinAmountOut: 900_000,
		Pools:        []Pool{testPool(sourceMint, WrappedSOLMint)},
	})
	require.NoError(t, err)

	require.NotNil(t, result.Transaction)
	assert.Nil(t, result.OverflowTransaction)
	assert.Equal(t, feePayer, result.Transaction.Message.AccountKeys[0], "relayer pays the network fee")

	// Signers: owner plus the temporary wrapped destination, plus the fee
	// payer signature added by the relayer. The destination rent nets to zero
	// because the account is closed into the fee payer.
	assert.Equal(t, 3*testLamportsPerSig, result.TotalFeeLamports)

	require.NotNil(t, result.Payload.Direct)
	assert.Nil(t, result.Payload.Transitive)
	assert.Equal(t, owner.PublicKey.String(), result.Payload.Direct.TransferAuthorityPubkey)
}

func TestSwapAndSendTransitiveWithOverflow(t *testing.T) {
	chain := newFakeChain()
	assembler, _ := newTestAssembler(chain)
	owner := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	destMint := solana.NewWallet().PublicKey()
	transitMint := solana.NewWallet().PublicKey()

	result, err := assembler.SwapAndSend(context.Background(), BuildParams{
		Owner:               owner,
		SourceMint:          WrappedSOLMint,
		DestinationMint:     destMint,
		AmountIn:            2_000_000,
		MinAmountOut:        1_000,
		TransitMinAmountOut: 1_500,
		Pools: []Pool{
			testPool(WrappedSOLMint, transitMint),
			testPool(transitMint, destMint),
		},
		SpendingNativeSOL: true,
	})
	require.NoError(t, err)

	// The wrapped-native source occupies the primary transaction, so the
	// missing destination account is created in a separate one.
	require.NotNil(t, result.OverflowTransaction)
	assert.Equal(t,
		result.Transaction.Message.RecentBlockhash,
		result.OverflowTransaction.Message.RecentBlockhash,
		"both transactions share one blockhash")

	require.NotNil(t, result.Payload.Transitive)
	assert.Nil(t, result.Payload.Direct)
	assert.Equal(t, transitMint.String(), result.Payload.Transitive.TransitTokenMintPubkey)
	assert.Equal(t, result.Payload.Transitive.From.DestinationPubkey, result.Payload.Transitive.To.SourcePubkey)

	// Fronted rent for the temporary source plus rent for the destination
	// account, on top of three primary signatures and the overflow
	// transaction's fee payer signature.
	expected := 4*testLamportsPerSig + 2*testRent
	assert.Equal(t, expected, result.TotalFeeLamports)
}

func TestSwapAndSendRejectsWrappedRecipient(t *testing.T) {
	chain := newFakeChain()
	assembler, _ := newTestAssembler(chain)
	owner := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	sourceMint := solana.NewWallet().PublicKey()

	_, err := assembler.SwapAndSend(context.Background(), BuildParams{
		Owner:           owner,
		SourceMint:      sourceMint,
		DestinationMint: WrappedSOLMint,
		AmountIn:        1_000,
		MinAmountOut:    900,
		Pools:           []Pool{testPool(sourceMint, WrappedSOLMint)},
		Recipient:       solana.NewWallet().PublicKey(),
	})
	assert.ErrorIs(t, err, ErrRecipientWrappedSOL)
}

func TestSwapAndSendWithDelegate(t *testing.T) {
	chain := newFakeChain()
	assembler, _ := newTestAssembler(chain)
	owner := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	sourceMint := solana.NewWallet().PublicKey()
	destMint := solana.NewWallet().PublicKey()
	destAddr := solana.NewWallet().PublicKey()
	delegate := solana.NewWallet().PrivateKey

	result, err := assembler.SwapAndSend(context.Background(), BuildParams{
		Owner:              owner,
		SourceMint:         sourceMint,
		DestinationMint:    destMint,
		AmountIn:           500,
		MinAmountOut:       400,
		Pools:              []Pool{testPool(sourceMint, destMint)},
		DestinationAddress: &destAddr,
		DelegateKey:        &delegate,
	})
	require.NoError(t, err)

	require.NotNil(t, result.Payload.Direct)
	assert.Equal(t, delegate.PublicKey().String(), result.Payload.Direct.TransferAuthorityPubkey)
	assert.Equal(t, destAddr.String(), result.Payload.Direct.DestinationPubkey)
}

func TestBuildValidation(t *testing.T) {
	chain := newFakeChain()
	assembler, _ := newTestAssembler(chain)
	owner := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	sourceMint := solana.NewWallet().PublicKey()
	destMint := solana.NewWallet().PublicKey()
	pool := testPool(sourceMint, destMint)

	tests := []struct {
		name    string
		params  BuildParams
		wantErr error
	}{
		{
			name:    "missing owner",
			params:  BuildParams{SourceMint: sourceMint, AmountIn: 1, MinAmountOut: 1, Pools: []Pool{pool}},
			wantErr: ErrMissingSigner,
		},
		{
			name:    "zero amount in",
			params:  BuildParams{Owner: owner, SourceMint: sourceMint, MinAmountOut: 1, Pools: []Pool{pool}},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "zero minimum out",
			params:  BuildParams{Owner: owner, SourceMint: sourceMint, AmountIn: 1, Pools: []Pool{pool}},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "no pools",
			params:  BuildParams{Owner: owner, SourceMint: sourceMint, AmountIn: 1, MinAmountOut: 1},
			wantErr: ErrPoolMissing,
		},
		{
			name: "transitive without first leg floor",
			params: BuildParams{
				Owner: owner, SourceMint: sourceMint, DestinationMint: destMint,
				AmountIn: 1, MinAmountOut: 1,
				Pools: []Pool{pool, testPool(destMint, solana.NewWallet().PublicKey())},
			},
			wantErr: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := assembler.SwapAndSend(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
