// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

type Config struct {
	RPCList                []string `mapstructure:"rpc_list"`
	JupiterURL             string   `mapstructure:"jupiter_url"`
	PriceURL               string   `mapstructure:"price_url"`
	FeePayer               string   `mapstructure:"fee_payer"`
	RelayProgramID         string   `mapstructure:"relay_program_id"`
	DefaultSlippageBps     int      `mapstructure:"default_slippage_bps"`
	LamportsPerSignature   uint64   `mapstructure:"lamports_per_signature"`
	MaxPrimaryInstructions int      `mapstructure:"max_primary_instructions"`
	DebugLogging           bool     `mapstructure:"debug_logging"`
	LogFile                string   `mapstructure:"log_file"`
}

const (
	DefaultJupiterURL     = "https://quote-api.jup.ag/v4"
	DefaultPriceURL       = "https://price.jup.ag/v4"
	DefaultSlippageBps    = 50
	DefaultLamportsPerSig = 5000
	// Conservative heuristic: once the source side has appended this many
	// instructions, destination account creation is routed into a separate
	// transaction. See relay.Assembler.
	DefaultMaxPrimaryInstructions = 3
	DefaultLogFile                = "relay.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"jupiter_url":              DefaultJupiterURL,
		"price_url":                DefaultPriceURL,
		"default_slippage_bps":     DefaultSlippageBps,
		"lamports_per_signature":   DefaultLamportsPerSig,
		"max_primary_instructions": DefaultMaxPrimaryInstructions,
		"log_file":                 DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if err := validateURL(cfg.JupiterURL, "http"); err != nil {
		return errors.New("invalid Jupiter URL")
	}
	if err := validateURL(cfg.PriceURL, "http"); err != nil {
		return errors.New("invalid price URL")
	}
	if cfg.FeePayer == "" {
		return errors.New("missing fee_payer in configuration")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.FeePayer); err != nil {
		return errors.New("invalid fee_payer address")
	}
	if cfg.RelayProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.RelayProgramID); err != nil {
			return errors.New("invalid relay_program_id address")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.DefaultSlippageBps <= 0 || cfg.DefaultSlippageBps > 10_000 {
		return errors.New("invalid default_slippage_bps")
	}
	if cfg.LamportsPerSignature == 0 {
		return errors.New("invalid lamports_per_signature")
	}
	if cfg.MaxPrimaryInstructions <= 0 {
		return errors.New("invalid max_primary_instructions")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SOLANA_RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envFeePayer := v.GetString("FEE_PAYER")
	if envFeePayer != "" {
		cfg.FeePayer = envFeePayer
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}
