// =============================
// File: internal/jupiter/client.go
// =============================
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// priceBatchSize is the largest ids list the price endpoint accepts per call.
const priceBatchSize = 100

// Client talks to the Jupiter quote and price APIs.
type Client struct {
	httpClient *http.Client
	quoteURL   string
	priceURL   string
	logger     *zap.Logger
}

// NewClient creates a client for the given API base URLs.
func NewClient(quoteURL, priceURL string, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		quoteURL:   strings.TrimSuffix(quoteURL, "/"),
		priceURL:   strings.TrimSuffix(priceURL, "/"),
		logger:     logger.Named("jupiter-client"),
	}
}

type quoteResponse struct {
	Data []json.RawMessage `json:"data"`
}

// Quote fetches candidate routes for the swap, ranked best-first.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps int) ([]Route, error) {
	query := url.Values{}
	query.Set("inputMint", inputMint.String())
	query.Set("outputMint", outputMint.String())
	query.Set("amount", strconv.FormatUint(amount, 10))
	query.Set("slippageBps", strconv.Itoa(slippageBps))

	endpoint := fmt.Sprintf("%s/quote?%s", c.quoteURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote request failed: status %d", resp.StatusCode)
	}

	var parsed quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	routes := make([]Route, 0, len(parsed.Data))
	for _, raw := range parsed.Data {
		var route Route
		if err := json.Unmarshal(raw, &route); err != nil {
			return nil, fmt.Errorf("failed to decode route: %w", err)
		}
		route.Raw = raw
		routes = append(routes, route)
	}

	c.logger.Debug("Fetched quote",
		zap.String("input_mint", inputMint.String()),
		zap.String("output_mint", outputMint.String()),
		zap.Uint64("amount", amount),
		zap.Int("routes", len(routes)))
	return routes, nil
}

type swapRequest struct {
	Route         json.RawMessage `json:"route"`
	UserPublicKey string          `json:"userPublicKey"`
	WrapUnwrapSOL bool            `json:"wrapUnwrapSOL"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// SwapTransaction asks the service to build an unsigned transaction for the
// route. A nil transaction with nil error means the service could not build
// one for this route.
func (c *Client) SwapTransaction(ctx context.Context, route Route, owner solana.PublicKey) (*solana.Transaction, error) {
	body, err := json.Marshal(swapRequest{
		Route:         route.Raw,
		UserPublicKey: owner.String(),
		WrapUnwrapSOL: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.quoteURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("swap request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap request failed: status %d", resp.StatusCode)
	}

	var parsed swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode swap response: %w", err)
	}
	if parsed.SwapTransaction == "" {
		return nil, nil
	}

	rawTx, err := base64.StdEncoding.DecodeString(parsed.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("failed to decode swap transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize swap transaction: %w", err)
	}
	return tx, nil
}

type priceResponse struct {
	Data map[string]struct {
		Price float64 `json:"price"`
	} `json:"data"`
}

// PricesByMint fetches fiat prices for the given mints, batching large mint
// lists across parallel requests.
func (c *Client) PricesByMint(ctx context.Context, mints []solana.PublicKey) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(mints))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(mints); start += priceBatchSize {
		end := start + priceBatchSize
		if end > len(mints) {
			end = len(mints)
		}
		batch := mints[start:end]

		g.Go(func() error {
			ids := make([]string, len(batch))
			for i, mint := range batch {
				ids[i] = mint.String()
			}

			endpoint := fmt.Sprintf("%s/price?ids=%s", c.priceURL, strings.Join(ids, ","))
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("price request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("price request failed: status %d", resp.StatusCode)
			}

			var parsed priceResponse
			if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
				return fmt.Errorf("failed to decode price response: %w", err)
			}

			mu.Lock()
			for mint, entry := range parsed.Data {
				prices[mint] = decimal.NewFromFloat(entry.Price)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prices, nil
}
