// =============================
// File: internal/jupiter/search.go
// =============================
package jupiter

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

// searchOutcome is the result of building a transaction for the current
// route selection. reason != ReasonNone marks a failure; clearRoutes reports
// whether the candidate list itself is exhausted.
type searchOutcome struct {
	routes      []Route
	chosen      int
	tx          *solana.Transaction
	reason      ErrorReason
	clearRoutes bool
}

// searchRoutes walks the ranked candidates best-first, simulating each built
// transaction. Routes whose simulation fails on-chain are evicted for good;
// the first survivor wins and keeps the remaining tail as fallbacks. Network
// failures abort the whole search without evicting anything, since they say
// nothing about route quality.
func (m *Machine) searchRoutes(ctx context.Context, owner *wallet.Wallet, routes []Route) searchOutcome {
	for i, route := range routes {
		tx, err := m.quotes.SwapTransaction(ctx, route, owner.PublicKey)
		if err != nil {
			m.logger.Warn("Swap transaction request failed", zap.Error(err))
			return searchOutcome{reason: ReasonNetworkError}
		}
		if tx == nil {
			m.logger.Debug("Route yielded no transaction, evicting",
				zap.Int("route_index", i))
			continue
		}

		sim, err := m.chain.SimulateTransaction(ctx, tx)
		if err != nil {
			m.logger.Warn("Simulation transport failure", zap.Error(err))
			return searchOutcome{reason: ReasonNetworkError}
		}
		if sim.Failed() {
			m.logger.Debug("Route failed simulation, evicting",
				zap.Int("route_index", i),
				zap.Any("execution_error", sim.ExecutionError))
			continue
		}

		if err := owner.SignTransaction(tx); err != nil {
			m.logger.Error("Failed to sign swap transaction", zap.Error(err))
			return searchOutcome{reason: ReasonCreateTransactionFailed}
		}

		kept := make([]Route, len(routes)-i)
		copy(kept, routes[i:])
		return searchOutcome{routes: kept, chosen: 0, tx: tx}
	}

	return searchOutcome{reason: ReasonRouteNotFound, clearRoutes: true}
}

// buildChosenRoute builds a transaction for an explicitly chosen route. No
// simulation and no eviction: the user overrode the ranking on purpose.
func (m *Machine) buildChosenRoute(ctx context.Context, owner *wallet.Wallet, routes []Route, chosen int) searchOutcome {
	tx, err := m.quotes.SwapTransaction(ctx, routes[chosen], owner.PublicKey)
	if err != nil {
		m.logger.Warn("Swap transaction request failed", zap.Error(err))
		return searchOutcome{reason: ReasonNetworkError}
	}
	if tx == nil {
		return searchOutcome{reason: ReasonCreateTransactionFailed}
	}
	if err := owner.SignTransaction(tx); err != nil {
		m.logger.Error("Failed to sign swap transaction", zap.Error(err))
		return searchOutcome{reason: ReasonCreateTransactionFailed}
	}
	return searchOutcome{routes: routes, chosen: chosen, tx: tx}
}
