package config

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
)

// DefaultGapThreshold is one minute of 4-second blocks.
const DefaultGapThreshold = 15

// Environment keys, named as the existing deployments set them.
const (
	EnvRPCURL       = "HTTPProvider"
	EnvContract     = "contract_address"
	EnvPrivateKey   = "private_key"
	EnvChainID      = "chain_id"
	EnvNetworkName  = "network_name"
	EnvGapThreshold = "gap_threshold"
	EnvGasPriceGwei = "gas_price_gwei"
	EnvGasLimit     = "gas_limit"
	EnvContractABI  = "contract_abi"
)

// File is the optional YAML form; every key may be overridden by the environment.
type File struct {
	RPCURL       string `yaml:"rpc_url"`
	Contract     string `yaml:"contract_address"`
	PrivateKey   string `yaml:"private_key"`
	ChainID      string `yaml:"chain_id"`
	NetworkName  string `yaml:"network_name"`
	GapThreshold string `yaml:"gap_threshold"`
	GasPriceGwei string `yaml:"gas_price_gwei"`
	GasLimit     string `yaml:"gas_limit"`
	ContractABI  string `yaml:"contract_abi"`
}

// Config is fixed at process start and shared read-only by every request.
type Config struct {
	RPCURL       string
	Contract     common.Address
	Key          *ecdsa.PrivateKey
	ChainID      *big.Int
	NetworkName  string
	GapThreshold uint64
	GasPriceGwei uint64
	GasLimit     uint64
	ContractABI  string
}

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads the optional YAML file at path, overlays the environment and validates.
func Load(path string, getenv func(string) string) (Config, error) {
	var f File
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &ConfigError{Field: "file", Reason: err.Error()}
		}
		if err := yaml.Unmarshal(b, &f); err != nil {
			return Config{}, &ConfigError{Field: "file", Reason: fmt.Sprintf("%s: %v", path, err)}
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	overlay := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	overlay(&f.RPCURL, EnvRPCURL)
	overlay(&f.Contract, EnvContract)
	overlay(&f.PrivateKey, EnvPrivateKey)
	overlay(&f.ChainID, EnvChainID)
	overlay(&f.NetworkName, EnvNetworkName)
	overlay(&f.GapThreshold, EnvGapThreshold)
	overlay(&f.GasPriceGwei, EnvGasPriceGwei)
	overlay(&f.GasLimit, EnvGasLimit)
	overlay(&f.ContractABI, EnvContractABI)
	return f.Resolve()
}

// Resolve validates raw settings into a Config.
func (f File) Resolve() (Config, error) {
	var c Config

	raw := strings.TrimSpace(f.RPCURL)
	if raw == "" {
		return c, &ConfigError{Field: EnvRPCURL, Reason: "must be set"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return c, &ConfigError{Field: EnvRPCURL, Reason: fmt.Sprintf("invalid url %q", raw)}
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return c, &ConfigError{Field: EnvRPCURL, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	c.RPCURL = raw

	addr := strings.TrimSpace(f.Contract)
	if addr == "" {
		return c, &ConfigError{Field: EnvContract, Reason: "must be set"}
	}
	if !common.IsHexAddress(addr) {
		return c, &ConfigError{Field: EnvContract, Reason: fmt.Sprintf("not a hex address: %q", addr)}
	}
	c.Contract = common.HexToAddress(addr)

	key := strings.TrimPrefix(strings.TrimSpace(f.PrivateKey), "0x")
	if key == "" {
		return c, &ConfigError{Field: EnvPrivateKey, Reason: "must be set"}
	}
	pk, err := crypto.HexToECDSA(key)
	if err != nil {
		// Never echo the key material.
		return c, &ConfigError{Field: EnvPrivateKey, Reason: "not a valid secp256k1 private key"}
	}
	c.Key = pk

	id, ok := new(big.Int).SetString(strings.TrimSpace(f.ChainID), 10)
	if !ok || id.Sign() <= 0 {
		return c, &ConfigError{Field: EnvChainID, Reason: fmt.Sprintf("must be a positive integer, got %q", f.ChainID)}
	}
	c.ChainID = id

	c.NetworkName = strings.TrimSpace(f.NetworkName)
	if c.NetworkName == "" {
		return c, &ConfigError{Field: EnvNetworkName, Reason: "must be set"}
	}

	if c.GapThreshold, err = parseUint(f.GapThreshold, DefaultGapThreshold); err != nil {
		return c, &ConfigError{Field: EnvGapThreshold, Reason: err.Error()}
	}
	if c.GasPriceGwei, err = parseUint(f.GasPriceGwei, 1); err != nil {
		return c, &ConfigError{Field: EnvGasPriceGwei, Reason: err.Error()}
	}
	if c.GasPriceGwei == 0 {
		return c, &ConfigError{Field: EnvGasPriceGwei, Reason: "must be > 0"}
	}
	if c.GasLimit, err = parseUint(f.GasLimit, 0); err != nil {
		return c, &ConfigError{Field: EnvGasLimit, Reason: err.Error()}
	}
	c.ContractABI = strings.TrimSpace(f.ContractABI)
	return c, nil
}

// Caller is the address derived from the signing key.
func (c Config) Caller() common.Address {
	return crypto.PubkeyToAddress(c.Key.PublicKey)
}

func parseUint(s string, def uint64) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("must be a non-negative integer, got %q", s)
	}
	return v, nil
}
