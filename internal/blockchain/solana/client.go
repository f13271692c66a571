// internal/blockchain/solana/client.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	retryAttempts = 2
	retryDelay    = 500 * time.Millisecond
	reqTimeout    = 10 * time.Second
)

var (
	ErrNoRPCNodes = errors.New("no RPC nodes available")
	ErrTimeout    = errors.New("request timeout")
)

// Client is a thin wrapper over a set of Solana RPC nodes with round-robin
// failover.
type Client struct {
	nodes          []*solanarpc.Client
	urls           []string
	current        int
	mu             sync.Mutex
	requestTimeout time.Duration
	logger         *zap.Logger

	rentMu    sync.RWMutex
	rentCache map[uint64]uint64
}

// NewClient creates a client over the given RPC node URLs.
func NewClient(urls []string, logger *zap.Logger) (*Client, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}

	nodes := make([]*solanarpc.Client, len(urls))
	for i, url := range urls {
		nodes[i] = solanarpc.New(url)
	}

	return &Client{
		nodes:          nodes,
		urls:           urls,
		requestTimeout: reqTimeout,
		logger:         logger.Named("rpc-client"),
		rentCache:      make(map[uint64]uint64),
	}, nil
}

// executeWithRetry runs the operation against the current node, rotating to
// the next node on failure. The operation receives the bounded context so a
// hung request cannot outlive the timeout.
func (c *Client) executeWithRetry(ctx context.Context, operation func(context.Context, *solanarpc.Client) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		select {
		case <-timeoutCtx.Done():
			return ErrTimeout
		default:
		}

		c.mu.Lock()
		node := c.nodes[c.current]
		url := c.urls[c.current]
		c.current = (c.current + 1) % len(c.nodes)
		c.mu.Unlock()

		err := operation(timeoutCtx, node)
		if err == nil {
			return nil
		}
		lastErr = err

		c.logger.Debug("RPC request failed, trying next node",
			zap.String("url", url),
			zap.Error(err),
			zap.Int("attempt", attempt+1))

		if attempt < retryAttempts-1 {
			select {
			case <-timeoutCtx.Done():
				return ErrTimeout
			case <-time.After(retryDelay):
			}
		}
	}

	return fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// AccountExists reports whether the account has been created on-chain.
func (c *Client) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	var exists bool
	err := c.executeWithRetry(ctx, func(ctx context.Context, client *solanarpc.Client) error {
		result, err := client.GetAccountInfoWithOpts(ctx, pubkey, &solanarpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: solanarpc.CommitmentConfirmed,
		})
		if err != nil {
			if errors.Is(err, solanarpc.ErrNotFound) {
				exists = false
				return nil
			}
			return err
		}
		exists = result != nil && result.Value != nil
		return nil
	})
	return exists, err
}

// MinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account of the given size. Results are cached; the value only changes with
// a cluster reconfiguration.
func (c *Client) MinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	c.rentMu.RLock()
	cached, ok := c.rentCache[dataSize]
	c.rentMu.RUnlock()
	if ok {
		return cached, nil
	}

	var lamports uint64
	err := c.executeWithRetry(ctx, func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		lamports, err = client.GetMinimumBalanceForRentExemption(ctx, dataSize, solanarpc.CommitmentConfirmed)
		return err
	})
	if err != nil {
		return 0, err
	}

	c.rentMu.Lock()
	c.rentCache[dataSize] = lamports
	c.rentMu.Unlock()
	return lamports, nil
}

// GetLatestBlockhash returns the most recent blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var hash solana.Hash
	err := c.executeWithRetry(ctx, func(ctx context.Context, client *solanarpc.Client) error {
		result, err := client.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		hash = result.Value.Blockhash
		return nil
	})
	return hash, err
}

// SimulationResult carries the outcome of a dry-run execution. A transport
// failure is reported through the error return of SimulateTransaction; a
// program-level failure lands in ExecutionError.
type SimulationResult struct {
	ExecutionError string
	Logs           []string
	UnitsConsumed  uint64
}

// Failed reports whether the simulated execution hit a program error.
func (r *SimulationResult) Failed() bool {
	return r.ExecutionError != ""
}

// SimulateTransaction dry-runs the transaction against current chain state.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	var result *SimulationResult
	err := c.executeWithRetry(ctx, func(ctx context.Context, client *solanarpc.Client) error {
		out, err := client.SimulateTransactionWithOpts(ctx, tx, &solanarpc.SimulateTransactionOpts{
			SigVerify:              false,
			ReplaceRecentBlockhash: true,
			Commitment:             solanarpc.CommitmentConfirmed,
		})
		if err != nil {
			return err
		}
		result = &SimulationResult{Logs: out.Value.Logs}
		if out.Value.Err != nil {
			result.ExecutionError = fmt.Sprintf("%v", out.Value.Err)
		}
		if out.Value.UnitsConsumed != nil {
			result.UnitsConsumed = *out.Value.UnitsConsumed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SendTransaction submits the transaction, retrying transient failures with
// exponential backoff. Deterministic failures abort immediately.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	op := func() (solana.Signature, error) {
		var signature solana.Signature
		err := c.executeWithRetry(ctx, func(ctx context.Context, client *solanarpc.Client) error {
			var err error
			signature, err = client.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
				SkipPreflight:       true,
				PreflightCommitment: solanarpc.CommitmentFinalized,
			})
			return err
		})
		if err != nil {
			if strings.Contains(err.Error(), "BlockhashNotFound") {
				return solana.Signature{}, err // transient, let backoff retry
			}
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("transaction failed: %w", err))
		}
		return signature, nil
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(15*time.Second),
	)
}
