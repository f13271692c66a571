// ====================================
// File: cmd/relayswap/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	solanaclient "github.com/rovshanmuradov/solana-relay/internal/blockchain/solana"
	"github.com/rovshanmuradov/solana-relay/internal/config"
	"github.com/rovshanmuradov/solana-relay/internal/jupiter"
	"github.com/rovshanmuradov/solana-relay/internal/logger"
	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

var usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	autoSend := flag.Bool("send", false, "submit committed swap transactions to the cluster")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.Init(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		zap.NewExample().Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()
	log.Info("Starting relay swap service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain, err := solanaclient.NewClient(cfg.RPCList, log)
	if err != nil {
		log.Fatal("Failed to create RPC client", zap.Error(err))
	}

	var owner *wallet.Wallet
	if key := os.Getenv("SOLANA_RELAY_PRIVATE_KEY"); key != "" {
		owner, err = wallet.NewWallet(key)
		if err != nil {
			log.Fatal("Invalid private key", zap.Error(err))
		}
		log.Info("Loaded wallet", zap.String("pubkey", owner.PublicKey.String()))
	}

	client := jupiter.NewClient(cfg.JupiterURL, cfg.PriceURL, log)
	machine := jupiter.NewMachine(client, client, chain, log)
	go machine.Run(ctx)

	machine.Initialize(jupiter.InitializeParams{
		FromToken:   jupiter.Token{Mint: solana.SolMint, Symbol: "SOL", Decimals: 9},
		ToToken:     jupiter.Token{Mint: usdcMint, Symbol: "USDC", Decimals: 6},
		SlippageBps: cfg.DefaultSlippageBps,
		Owner:       owner,
	})

	go func() {
		var lastSent *solana.Transaction
		for state := range machine.Updates() {
			log.Debug("Swap state changed",
				zap.String("status", state.Status.String()),
				zap.String("error_reason", state.ErrorReason.String()),
				zap.Int("routes", len(state.Routes)))

			if !*autoSend || state.Status != jupiter.StatusReady || state.Transaction == nil {
				continue
			}
			if state.Transaction == lastSent {
				continue
			}
			lastSent = state.Transaction

			signature, err := chain.SendTransaction(ctx, state.Transaction)
			if err != nil {
				log.Error("Failed to submit swap transaction", zap.Error(err))
				continue
			}
			log.Info("Submitted swap transaction", zap.String("signature", signature.String()))
		}
	}()

	if owner == nil {
		log.Warn("No private key configured, transactions cannot be signed")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("Shutting down")
	cancel()
}
