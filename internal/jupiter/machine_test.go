// =============================
// File: internal/jupiter/machine_test.go
// =============================
package jupiter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	solanaclient "github.com/rovshanmuradov/solana-relay/internal/blockchain/solana"
	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

type fakeQuotes struct {
	mu         sync.Mutex
	routes     []Route
	quoteErr   error
	quoteCalls int
	swapErr    error
	// pending, when non-nil, gates every Quote call until the test releases
	// it with an explicit reply.
	pending chan *gatedQuote
}

type gatedQuote struct {
	amount uint64
	reply  chan gatedReply
}

type gatedReply struct {
	routes []Route
	err    error
}

func (f *fakeQuotes) Quote(ctx context.Context, _, _ solana.PublicKey, amount uint64, _ int) ([]Route, error) {
	f.mu.Lock()
	f.quoteCalls++
	f.mu.Unlock()

	if f.pending != nil {
		call := &gatedQuote{amount: amount, reply: make(chan gatedReply)}
		select {
		case f.pending <- call:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		select {
		case r := <-call.reply:
			return r.routes, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.routes, f.quoteErr
}

func (f *fakeQuotes) SwapTransaction(_ context.Context, _ Route, owner solana.PublicKey) (*solana.Transaction, error) {
	if f.swapErr != nil {
		return nil, f.swapErr
	}
	return makeTestTx(owner)
}

func (f *fakeQuotes) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoteCalls
}

type fakePrices struct{}

func (fakePrices) PricesByMint(_ context.Context, mints []solana.PublicKey) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(mints))
	for _, mint := range mints {
		prices[mint.String()] = decimal.NewFromInt(1)
	}
	return prices, nil
}

type fakeSimulator struct {
	mu       sync.Mutex
	failNext int
	simErr   error
	calls    int
}

func (f *fakeSimulator) SimulateTransaction(_ context.Context, _ *solana.Transaction) (*solanaclient.SimulationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.simErr != nil {
		return nil, f.simErr
	}
	if f.failNext > 0 {
		f.failNext--
		return &solanaclient.SimulationResult{ExecutionError: "custom program error: 0x1"}, nil
	}
	return &solanaclient.SimulationResult{}, nil
}

func (f *fakeSimulator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func makeTestTx(owner solana.PublicKey) (*solana.Transaction, error) {
	ix := solana.NewInstruction(
		solana.SystemProgramID,
		[]*solana.AccountMeta{
			solana.NewAccountMeta(owner, true, true),
			solana.NewAccountMeta(solana.NewWallet().PublicKey(), true, false),
		},
		[]byte{2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0},
	)
	return solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(owner))
}

func makeRoutes(outAmounts ...uint64) []Route {
	routes := make([]Route, len(outAmounts))
	for i, out := range outAmounts {
		routes[i] = Route{InAmount: 1_000_000, OutAmount: out}
	}
	return routes
}

func testTokens() (Token, Token) {
	from := Token{Mint: solana.NewWallet().PublicKey(), Symbol: "SOL", Decimals: 9}
	to := Token{Mint: solana.NewWallet().PublicKey(), Symbol: "USDC", Decimals: 6}
	return from, to
}

func startMachine(t *testing.T, quotes QuoteService, sim Simulator) (*Machine, <-chan State) {
	t.Helper()
	m := NewMachine(quotes, fakePrices{}, sim, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)
	return m, m.Updates()
}

func waitFor(t *testing.T, updates <-chan State, desc string, pred func(State) bool) State {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-updates:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", desc)
		}
	}
}

func initReady(t *testing.T, m *Machine, updates <-chan State, amount *decimal.Decimal) State {
	t.Helper()
	from, to := testTokens()
	m.Initialize(InitializeParams{
		FromToken:   from,
		ToToken:     to,
		AmountFrom:  amount,
		SlippageBps: 50,
		Owner:       wallet.FromPrivateKey(solana.NewWallet().PrivateKey),
	})
	return waitFor(t, updates, "initialization", func(s State) bool {
		return s.Status == StatusReady
	})
}

func TestAdaptiveSearchEvictsFailingRoutes(t *testing.T) {
	quotes := &fakeQuotes{routes: makeRoutes(300, 200, 100)}
	sim := &fakeSimulator{failNext: 2}
	m, updates := startMachine(t, quotes, sim)

	amount := decimal.NewFromInt(1)
	state := initReady(t, m, updates, &amount)
	require.Len(t, state.Routes, 3)

	m.CreateTransaction()
	state = waitFor(t, updates, "transaction", func(s State) bool {
		return s.Status == StatusReady && s.Transaction != nil
	})

	// The two best-ranked routes failed simulation and are gone for good;
	// the survivor is now the selection.
	require.Len(t, state.Routes, 1)
	assert.Equal(t, uint64(100), state.Routes[0].OutAmount)
	assert.Equal(t, 0, state.ChosenIndex)
	assert.False(t, state.Simulating)
	require.NotNil(t, state.AmountTo)
}

func TestAdaptiveSearchExhaustsAllRoutes(t *testing.T) {
	quotes := &fakeQuotes{routes: makeRoutes(300, 200)}
	sim := &fakeSimulator{failNext: 2}
	m, updates := startMachine(t, quotes, sim)

	amount := decimal.NewFromInt(1)
	initReady(t, m, updates, &amount)

	m.CreateTransaction()
	state := waitFor(t, updates, "exhausted search", func(s State) bool {
		return s.Status == StatusError
	})

	assert.Equal(t, ReasonRouteNotFound, state.ErrorReason)
	assert.Empty(t, state.Routes)
	assert.Nil(t, state.Transaction)
}

func TestNetworkErrorPreservesRoutes(t *testing.T) {
	quotes := &fakeQuotes{routes: makeRoutes(300, 200), swapErr: errors.New("connection reset")}
	sim := &fakeSimulator{}
	m, updates := startMachine(t, quotes, sim)

	amount := decimal.NewFromInt(1)
	initReady(t, m, updates, &amount)

	m.CreateTransaction()
	state := waitFor(t, updates, "network error", func(s State) bool {
		return s.Status == StatusError
	})

	assert.Equal(t, ReasonNetworkError, state.ErrorReason)
	// A transport failure says nothing about route quality; the candidates
	// survive for a retry.
	assert.Len(t, state.Routes, 2)
}

func TestUserPickedRouteSkipsSimulation(t *testing.T) {
	quotes := &fakeQuotes{routes: makeRoutes(300, 200, 100)}
	sim := &fakeSimulator{failNext: 3}
	m, updates := startMachine(t, quotes, sim)

	amount := decimal.NewFromInt(1)
	initReady(t, m, updates, &amount)

	m.ChooseRoute(1)
	waitFor(t, updates, "route choice", func(s State) bool {
		return s.ChosenIndex == 1
	})

	m.CreateTransaction()
	state := waitFor(t, updates, "chosen-route transaction", func(s State) bool {
		return s.Status == StatusReady && s.Transaction != nil
	})

	assert.Equal(t, 0, sim.callCount(), "explicit choice must not be simulated")
	assert.Len(t, state.Routes, 3, "no eviction on the user-picked path")
	assert.Equal(t, 1, state.ChosenIndex)
}

func TestChangeAmountFromIsIdempotent(t *testing.T) {
	quotes := &fakeQuotes{routes: makeRoutes(300)}
	m, updates := startMachine(t, quotes, &fakeSimulator{})

	amount := decimal.NewFromInt(5)
	initReady(t, m, updates, &amount)
	require.Equal(t, 1, quotes.calls())

	// Same amount again: no transition, no quote request.
	m.ChangeAmountFrom(decimal.NewFromInt(5))

	// A different amount proves the previous action was a no-op: the counter
	// jumps straight from 1 to 2.
	m.ChangeAmountFrom(decimal.NewFromInt(7))
	waitFor(t, updates, "requote", func(s State) bool {
		return s.Status == StatusReady && s.AmountFrom != nil && s.AmountFrom.Equal(decimal.NewFromInt(7))
	})
	assert.Equal(t, 2, quotes.calls())
}

func TestSwitchTokensClearsAmounts(t *testing.T) {
	quotes := &fakeQuotes{routes: makeRoutes(300)}
	m, updates := startMachine(t, quotes, &fakeSimulator{})

	amount := decimal.NewFromInt(5)
	state := initReady(t, m, updates, &amount)
	fromMint := state.FromToken.Mint
	toMint := state.ToToken.Mint

	m.SwitchTokens()
	state = waitFor(t, updates, "switch", func(s State) bool {
		return s.Status == StatusReady && s.FromToken.Mint.Equals(toMint)
	})

	assert.True(t, state.ToToken.Mint.Equals(fromMint))
	assert.Nil(t, state.AmountFrom, "amounts are denominated per direction")
	assert.Nil(t, state.AmountTo)
	assert.Empty(t, state.Routes)
	assert.Nil(t, state.Transaction)

	// Switching back restores the original pair, amounts stay cleared.
	m.SwitchTokens()
	state = waitFor(t, updates, "switch back", func(s State) bool {
		return s.Status == StatusReady && s.FromToken.Mint.Equals(fromMint)
	})
	assert.True(t, state.ToToken.Mint.Equals(toMint))
	assert.Nil(t, state.AmountFrom)
	assert.Nil(t, state.AmountTo)
}

func TestSupersededQuoteIsDiscarded(t *testing.T) {
	quotes := &fakeQuotes{pending: make(chan *gatedQuote, 2)}
	m, updates := startMachine(t, quotes, &fakeSimulator{})

	initReady(t, m, updates, nil)

	m.ChangeAmountFrom(decimal.NewFromInt(1))
	first := <-quotes.pending
	m.ChangeAmountFrom(decimal.NewFromInt(2))
	second := <-quotes.pending

	// The stale quote resolves first; its routes must never surface.
	first.reply <- gatedReply{routes: makeRoutes(999)}
	second.reply <- gatedReply{routes: makeRoutes(42)}

	state := waitFor(t, updates, "fresh quote", func(s State) bool {
		return s.Status == StatusReady && len(s.Routes) > 0
	})
	assert.Equal(t, uint64(42), state.Routes[0].OutAmount)
	require.NotNil(t, state.AmountTo)
	assert.True(t, state.AmountFrom.Equal(decimal.NewFromInt(2)))
}

func TestCreateTransactionWithoutOwner(t *testing.T) {
	quotes := &fakeQuotes{routes: makeRoutes(300)}
	m, updates := startMachine(t, quotes, &fakeSimulator{})

	from, to := testTokens()
	amount := decimal.NewFromInt(1)
	m.Initialize(InitializeParams{FromToken: from, ToToken: to, AmountFrom: &amount, SlippageBps: 50})
	waitFor(t, updates, "initialization", func(s State) bool { return s.Status == StatusReady })

	m.CreateTransaction()
	state := waitFor(t, updates, "unauthorized", func(s State) bool {
		return s.Status == StatusError
	})
	assert.Equal(t, ReasonUnauthorized, state.ErrorReason)
}
