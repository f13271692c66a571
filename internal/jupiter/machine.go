// =============================
// File: internal/jupiter/machine.go
// =============================
package jupiter

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	solanaclient "github.com/rovshanmuradov/solana-relay/internal/blockchain/solana"
	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

// QuoteService provides ranked routes and swap transactions for them.
type QuoteService interface {
	Quote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps int) ([]Route, error)
	// SwapTransaction returns a nil transaction with nil error when the
	// service cannot build one for the route.
	SwapTransaction(ctx context.Context, route Route, owner solana.PublicKey) (*solana.Transaction, error)
}

// PriceService provides fiat prices per mint.
type PriceService interface {
	PricesByMint(ctx context.Context, mints []solana.PublicKey) (map[string]decimal.Decimal, error)
}

// Simulator dry-runs a transaction. A transport failure comes back as the
// error; a program-level failure lands inside the result.
type Simulator interface {
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*solanaclient.SimulationResult, error)
}

// Machine owns the single swap State and mutates it exclusively through its
// run loop: actions and async results are applied from one goroutine, so no
// result computed for a superseded selection can resurrect stale data.
type Machine struct {
	quotes QuoteService
	prices PriceService
	chain  Simulator
	logger *zap.Logger

	actions chan action
	results chan asyncResult
	updates chan State

	state State
	// seq identifies the most recently accepted async computation; results
	// stamped with an older seq are discarded.
	seq uint64
}

type action interface {
	name() string
}

type asyncResult struct {
	seq   uint64
	apply func(*State)
}

// InitializeParams seed the machine at screen entry.
type InitializeParams struct {
	FromToken   Token
	ToToken     Token
	AmountFrom  *decimal.Decimal
	SlippageBps int
	Owner       *wallet.Wallet
}

type (
	initAction        struct{ params InitializeParams }
	amountFromAction  struct{ amount decimal.Decimal }
	fromTokenAction   struct{ token Token }
	toTokenAction     struct{ token Token }
	switchAction      struct{}
	slippageAction    struct{ bps int }
	chooseRouteAction struct{ index int }
	createTxAction    struct{}
)

func (initAction) name() string        { return "initialize" }
func (amountFromAction) name() string  { return "change_amount_from" }
func (fromTokenAction) name() string   { return "change_from_token" }
func (toTokenAction) name() string     { return "change_to_token" }
func (switchAction) name() string      { return "switch_tokens" }
func (slippageAction) name() string    { return "change_slippage" }
func (chooseRouteAction) name() string { return "choose_route" }
func (createTxAction) name() string    { return "create_transaction" }

// NewMachine creates a machine in the requires-initialization state. Run
// must be started before actions are dispatched.
func NewMachine(quotes QuoteService, prices PriceService, chain Simulator, logger *zap.Logger) *Machine {
	return &Machine{
		quotes:  quotes,
		prices:  prices,
		chain:   chain,
		logger:  logger.Named("swap-machine"),
		actions: make(chan action, 16),
		results: make(chan asyncResult, 16),
		updates: make(chan State, 16),
		state: State{
			Status:      StatusRequiresInitialization,
			ChosenIndex: -1,
		},
	}
}

// Updates delivers state snapshots after every transition. When the consumer
// falls behind, the oldest snapshot is dropped; the channel always ends on
// the latest state.
func (m *Machine) Updates() <-chan State {
	return m.updates
}

// Run processes actions until the context is cancelled. It must be called
// exactly once.
func (m *Machine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case act := <-m.actions:
			m.handle(ctx, act)
		case res := <-m.results:
			if res.seq != m.seq {
				m.logger.Debug("Discarding superseded async result",
					zap.Uint64("result_seq", res.seq),
					zap.Uint64("current_seq", m.seq))
				continue
			}
			res.apply(&m.state)
			m.publish()
		}
	}
}

// Initialize seeds tokens, slippage and owner, then loads prices and an
// initial quote.
func (m *Machine) Initialize(params InitializeParams) { m.actions <- initAction{params} }

// ChangeAmountFrom sets the input amount and refreshes the quote.
func (m *Machine) ChangeAmountFrom(amount decimal.Decimal) { m.actions <- amountFromAction{amount} }

// ChangeFromToken replaces the input token; amounts are cleared because they
// were denominated in the previous token.
func (m *Machine) ChangeFromToken(token Token) { m.actions <- fromTokenAction{token} }

// ChangeToToken replaces the output token and refreshes the quote when an
// input amount is set.
func (m *Machine) ChangeToToken(token Token) { m.actions <- toTokenAction{token} }

// SwitchTokens swaps the token pair and clears both amounts.
func (m *Machine) SwitchTokens() { m.actions <- switchAction{} }

// ChangeSlippageBps updates the slippage tolerance and refreshes the quote
// when an input amount is set.
func (m *Machine) ChangeSlippageBps(bps int) { m.actions <- slippageAction{bps} }

// ChooseRoute pins an explicit candidate route by index.
func (m *Machine) ChooseRoute(index int) { m.actions <- chooseRouteAction{index} }

// CreateTransaction builds (and, for the default top-ranked route, simulates)
// the swap transaction for the current selection.
func (m *Machine) CreateTransaction() { m.actions <- createTxAction{} }

func (m *Machine) handle(ctx context.Context, act action) {
	switch a := act.(type) {
	case initAction:
		m.handleInitialize(ctx, a.params)
	case amountFromAction:
		m.handleChangeAmountFrom(ctx, a.amount)
	case fromTokenAction:
		m.handleChangeFromToken(ctx, a.token)
	case toTokenAction:
		m.handleChangeToToken(ctx, a.token)
	case switchAction:
		m.handleSwitchTokens(ctx)
	case slippageAction:
		m.handleChangeSlippage(ctx, a.bps)
	case chooseRouteAction:
		m.handleChooseRoute(a.index)
	case createTxAction:
		m.handleCreateTransaction(ctx)
	}
}

func (m *Machine) handleInitialize(ctx context.Context, params InitializeParams) {
	if m.state.Status != StatusRequiresInitialization {
		return
	}

	m.state = State{
		Status:      StatusInitializing,
		FromToken:   params.FromToken,
		ToToken:     params.ToToken,
		AmountFrom:  params.AmountFrom,
		SlippageBps: params.SlippageBps,
		Owner:       params.Owner,
		ChosenIndex: -1,
	}
	m.publish()

	from, to := m.state.FromToken, m.state.ToToken
	amount := m.state.AmountFrom
	slippage := m.state.SlippageBps
	seq := m.nextSeq()

	go func() {
		var prices map[string]decimal.Decimal
		var routes []Route

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			prices, err = m.prices.PricesByMint(gctx, []solana.PublicKey{from.Mint, to.Mint})
			return err
		})
		if amount != nil && !amount.IsZero() {
			g.Go(func() error {
				var err error
				routes, err = m.quotes.Quote(gctx, from.Mint, to.Mint, rawAmount(*amount, from.Decimals), slippage)
				return err
			})
		}
		err := g.Wait()

		m.deliver(ctx, seq, func(s *State) {
			if err != nil {
				s.Status = StatusError
				s.ErrorReason = ReasonInitializationFailed
				return
			}
			s.PricesByMint = prices
			s.Routes = routes
			s.ChosenIndex = -1
			if len(routes) > 0 {
				amountTo := tokenAmount(routes[0].OutAmount, s.ToToken.Decimals)
				s.AmountTo = &amountTo
			}
			s.Status = StatusReady
			s.ErrorReason = ReasonNone
		})
	}()
}

func (m *Machine) handleChangeAmountFrom(ctx context.Context, amount decimal.Decimal) {
	if !m.initialized() {
		return
	}
	// No-op guard: re-entering the same amount must not trigger any network
	// calls.
	if m.state.AmountFrom != nil && m.state.AmountFrom.Equal(amount) {
		return
	}

	if amount.IsZero() {
		m.state.AmountFrom = nil
		m.state.clearDerived()
		m.state.Status = StatusReady
		m.state.ErrorReason = ReasonNone
		m.publish()
		return
	}

	m.state.AmountFrom = &amount
	m.state.clearDerived()
	m.state.Status = StatusLoadingQuote
	m.publish()
	m.startQuote(ctx)
}

func (m *Machine) handleChangeFromToken(ctx context.Context, token Token) {
	if !m.initialized() {
		return
	}
	if m.state.FromToken.Mint.Equals(token.Mint) {
		return
	}

	m.state.FromToken = token
	m.state.AmountFrom = nil
	m.state.clearDerived()
	m.state.Status = StatusSwitching
	m.publish()
	m.startPriceRefresh(ctx)
}

func (m *Machine) handleChangeToToken(ctx context.Context, token Token) {
	if !m.initialized() {
		return
	}
	if m.state.ToToken.Mint.Equals(token.Mint) {
		return
	}

	m.state.ToToken = token
	m.state.clearDerived()

	if m.state.AmountFrom != nil {
		m.state.Status = StatusLoadingQuote
		m.publish()
		m.startQuote(ctx)
		return
	}
	m.state.Status = StatusSwitching
	m.publish()
	m.startPriceRefresh(ctx)
}

func (m *Machine) handleSwitchTokens(ctx context.Context) {
	if !m.initialized() {
		return
	}

	m.state.FromToken, m.state.ToToken = m.state.ToToken, m.state.FromToken
	m.state.AmountFrom = nil
	m.state.clearDerived()
	m.state.Status = StatusSwitching
	m.publish()
	m.startPriceRefresh(ctx)
}

func (m *Machine) handleChangeSlippage(ctx context.Context, bps int) {
	if !m.initialized() {
		return
	}
	if bps <= 0 || bps == m.state.SlippageBps {
		return
	}

	m.state.SlippageBps = bps
	m.state.clearDerived()

	if m.state.AmountFrom != nil {
		m.state.Status = StatusLoadingQuote
		m.publish()
		m.startQuote(ctx)
		return
	}
	m.publish()
}

func (m *Machine) handleChooseRoute(index int) {
	if m.state.Status != StatusReady {
		return
	}
	if index < 0 || index >= len(m.state.Routes) || index == m.state.ChosenIndex {
		return
	}
	m.state.ChosenIndex = index
	m.state.Transaction = nil
	m.publish()
}

func (m *Machine) handleCreateTransaction(ctx context.Context) {
	if m.state.Status != StatusReady || len(m.state.Routes) == 0 {
		return
	}
	if m.state.Owner == nil {
		m.state.Status = StatusError
		m.state.ErrorReason = ReasonUnauthorized
		m.publish()
		return
	}

	// An explicit non-top choice overrides the adaptive search: build only
	// that route, no simulation.
	userPicked := m.state.ChosenIndex > 0

	m.state.Transaction = nil
	m.state.Status = StatusCreatingTransaction
	m.state.Simulating = !userPicked
	m.publish()

	owner := m.state.Owner
	routes := make([]Route, len(m.state.Routes))
	copy(routes, m.state.Routes)
	chosen := m.state.ChosenIndex
	seq := m.nextSeq()

	go func() {
		var outcome searchOutcome
		if userPicked {
			outcome = m.buildChosenRoute(ctx, owner, routes, chosen)
		} else {
			outcome = m.searchRoutes(ctx, owner, routes)
		}

		m.deliver(ctx, seq, func(s *State) {
			s.Simulating = false
			if outcome.reason != ReasonNone {
				s.Status = StatusError
				s.ErrorReason = outcome.reason
				if outcome.clearRoutes {
					s.Routes = nil
					s.ChosenIndex = -1
				}
				return
			}
			s.Routes = outcome.routes
			s.ChosenIndex = outcome.chosen
			s.Transaction = outcome.tx
			amountTo := tokenAmount(outcome.routes[outcome.chosen].OutAmount, s.ToToken.Decimals)
			s.AmountTo = &amountTo
			s.Status = StatusReady
			s.ErrorReason = ReasonNone
		})
	}()
}

func (m *Machine) startQuote(ctx context.Context) {
	from, to := m.state.FromToken, m.state.ToToken
	amount := rawAmount(*m.state.AmountFrom, from.Decimals)
	slippage := m.state.SlippageBps
	seq := m.nextSeq()

	go func() {
		routes, err := m.quotes.Quote(ctx, from.Mint, to.Mint, amount, slippage)
		m.deliver(ctx, seq, func(s *State) {
			if err != nil {
				s.Status = StatusError
				s.ErrorReason = ReasonNetworkError
				return
			}
			if len(routes) == 0 {
				s.Status = StatusError
				s.ErrorReason = ReasonRouteNotFound
				return
			}
			s.Routes = routes
			s.ChosenIndex = -1
			amountTo := tokenAmount(routes[0].OutAmount, s.ToToken.Decimals)
			s.AmountTo = &amountTo
			s.Status = StatusReady
			s.ErrorReason = ReasonNone
		})
	}()
}

func (m *Machine) startPriceRefresh(ctx context.Context) {
	from, to := m.state.FromToken, m.state.ToToken
	seq := m.nextSeq()

	go func() {
		prices, err := m.prices.PricesByMint(ctx, []solana.PublicKey{from.Mint, to.Mint})
		m.deliver(ctx, seq, func(s *State) {
			// Price refresh is cosmetic; a failure keeps the previous prices
			// rather than knocking the user into an error state.
			if err == nil {
				s.PricesByMint = prices
			}
			s.Status = StatusReady
			s.ErrorReason = ReasonNone
		})
	}()
}

func (m *Machine) initialized() bool {
	return m.state.Status != StatusRequiresInitialization && m.state.Status != StatusInitializing
}

func (m *Machine) nextSeq() uint64 {
	m.seq++
	return m.seq
}

// deliver hands an async result back to the run loop, giving up when the
// machine shuts down first.
func (m *Machine) deliver(ctx context.Context, seq uint64, apply func(*State)) {
	select {
	case m.results <- asyncResult{seq: seq, apply: apply}:
	case <-ctx.Done():
	}
}

// publish emits a snapshot, dropping the oldest pending one when the
// subscriber lags.
func (m *Machine) publish() {
	snap := m.state.clone()
	for {
		select {
		case m.updates <- snap:
			return
		default:
			select {
			case <-m.updates:
			default:
			}
		}
	}
}
