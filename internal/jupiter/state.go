// =============================
// File: internal/jupiter/state.go
// =============================
package jupiter

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

// Status is the lifecycle phase of the swap state.
type Status int

const (
	StatusRequiresInitialization Status = iota
	StatusInitializing
	StatusReady
	StatusLoadingQuote
	StatusSwitching
	StatusCreatingTransaction
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusRequiresInitialization:
		return "requires_initialization"
	case StatusInitializing:
		return "initializing"
	case StatusReady:
		return "ready"
	case StatusLoadingQuote:
		return "loading_quote"
	case StatusSwitching:
		return "switching"
	case StatusCreatingTransaction:
		return "creating_transaction"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorReason qualifies StatusError. The last valid token and amount
// selection is preserved across errors so the next action retries cleanly.
type ErrorReason int

const (
	ReasonNone ErrorReason = iota
	ReasonInitializationFailed
	ReasonNetworkError
	ReasonRouteNotFound
	ReasonCreateTransactionFailed
	ReasonUnauthorized
)

func (r ErrorReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInitializationFailed:
		return "initialization_failed"
	case ReasonNetworkError:
		return "network_error"
	case ReasonRouteNotFound:
		return "route_not_found"
	case ReasonCreateTransactionFailed:
		return "create_transaction_failed"
	case ReasonUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// State is the single state record of the swap machine. Snapshots of it are
// published to subscribers; consumers must treat them as read-only.
//
// Transaction is only non-nil while Status is StatusReady; any transition
// invalidating its inputs clears it in the same transition. Routes are
// non-empty only while Status is StatusReady or StatusCreatingTransaction.
type State struct {
	Status      Status
	ErrorReason ErrorReason
	// Simulating distinguishes the adaptive simulate-and-pick search from a
	// plain single-route build while Status is StatusCreatingTransaction.
	Simulating bool

	FromToken Token
	ToToken   Token

	AmountFrom *decimal.Decimal
	AmountTo   *decimal.Decimal

	SlippageBps int

	// Routes is the ranked candidate list, best first. ChosenIndex points
	// into it; -1 means "default to the top-ranked route".
	Routes      []Route
	ChosenIndex int

	Transaction *solana.Transaction

	PricesByMint map[string]decimal.Decimal

	Owner *wallet.Wallet
}

// ChosenRoute returns the explicitly chosen route, or nil when the machine
// defaults to the top-ranked one.
func (s *State) ChosenRoute() *Route {
	if s.ChosenIndex < 0 || s.ChosenIndex >= len(s.Routes) {
		return nil
	}
	return &s.Routes[s.ChosenIndex]
}

// clearDerived drops every value computed from the current token/amount/
// slippage selection. Called in the optimistic phase of a transition so the
// UI never observes stale results while a request is in flight.
func (s *State) clearDerived() {
	s.Routes = nil
	s.ChosenIndex = -1
	s.AmountTo = nil
	s.Transaction = nil
}

func (s *State) clone() State {
	out := *s
	if s.Routes != nil {
		out.Routes = make([]Route, len(s.Routes))
		copy(out.Routes, s.Routes)
	}
	if s.PricesByMint != nil {
		out.PricesByMint = make(map[string]decimal.Decimal, len(s.PricesByMint))
		for k, v := range s.PricesByMint {
			out.PricesByMint[k] = v
		}
	}
	return out
}
