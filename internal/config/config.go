package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TransformerOverride describes one transformer contract re-deployed
// inside the override set, keyed by its deployment nonce. ConstructorArgs
// are appended to the creation bytecode, encoded per the artifact ABI.
type TransformerOverride struct {
	ArtifactPath    string            `json:"artifactPath"`
	ConstructorArgs []json.RawMessage `json:"constructorArgs,omitempty"`
	Balance         string            `json:"balance,omitempty"`
}

// AccountOverride injects arbitrary extra state into every simulation.
type AccountOverride struct {
	ArtifactPath string `json:"artifactPath"`
	Balance      string `json:"balance,omitempty"`
	Nonce        uint64 `json:"nonce,omitempty"`
}

type TransformersConfig struct {
	Deployer         common.Address                 `json:"deployer"`
	OverridesByNonce map[uint64]TransformerOverride `json:"overridesByNonce,omitempty"`
}

type ArtifactPaths struct {
	Taker               string `json:"taker"`
	HackedWallet        string `json:"hackedWallet"`
	NoGST               string `json:"noGST"`
	TransformerDeployer string `json:"transformerDeployer"`
}

// Config is the on-disk config.json, created from the template on first
// run and defaulted field by field after parsing.
type Config struct {
	Erc20Proxy   common.Address                     `json:"erc20Proxy"`
	Exchange     common.Address                     `json:"exchange"`
	Forwarder    common.Address                     `json:"forwarder"`
	Taker        common.Address                     `json:"taker"`
	Transformers TransformersConfig                 `json:"transformers"`
	Overrides    map[common.Address]AccountOverride `json:"overrides,omitempty"`
	Artifacts    ArtifactPaths                      `json:"artifacts"`
}

func Template() Config {
	return Config{
		Erc20Proxy: common.HexToAddress("0x95e6f48254609a6ee006f7d493c8e5fb97094cef"),
		Exchange:   common.HexToAddress("0x61935cbdd02287b511119ddb11aeb42f1593b7ef"),
		Forwarder:  common.HexToAddress("0x6958f5e95332d93d21af0d7b9ca85b8212fee0a5"),
		Taker:      common.HexToAddress("0xd00d00caca000000000000000000000000001337"),
		Transformers: TransformersConfig{
			Deployer: common.HexToAddress("0x80a36559ab9a497fb658325ed771a584eb0f13da"),
		},
		Artifacts: ArtifactPaths{
			Taker:               "build/MarketCallTaker.output.json",
			HackedWallet:        "build/HackedWallet.output.json",
			NoGST:               "build/NoGST.output.json",
			TransformerDeployer: "build/TransformerDeployer.output.json",
		},
	}
}

// Load reads config.json, creating it from the template when missing.
// Zero-valued fields fall back to the template so a hand-trimmed config
// keeps working.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Template()
		out, _ := json.MarshalIndent(cfg, "", "  ")
		if werr := os.WriteFile(path, out, 0o644); werr != nil {
			return Config{}, fmt.Errorf("write default config: %w", werr)
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Config{}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	tpl := Template()
	zero := common.Address{}
	if cfg.Erc20Proxy == zero {
		cfg.Erc20Proxy = tpl.Erc20Proxy
	}
	if cfg.Exchange == zero {
		cfg.Exchange = tpl.Exchange
	}
	if cfg.Forwarder == zero {
		cfg.Forwarder = tpl.Forwarder
	}
	if cfg.Taker == zero {
		cfg.Taker = tpl.Taker
	}
	if cfg.Transformers.Deployer == zero {
		cfg.Transformers.Deployer = tpl.Transformers.Deployer
	}
	if cfg.Artifacts.Taker == "" {
		cfg.Artifacts.Taker = tpl.Artifacts.Taker
	}
	if cfg.Artifacts.HackedWallet == "" {
		cfg.Artifacts.HackedWallet = tpl.Artifacts.HackedWallet
	}
	if cfg.Artifacts.NoGST == "" {
		cfg.Artifacts.NoGST = tpl.Artifacts.NoGST
	}
	if cfg.Artifacts.TransformerDeployer == "" {
		cfg.Artifacts.TransformerDeployer = tpl.Artifacts.TransformerDeployer
	}
}

// ParseBig parses a balance string, decimal or 0x-hex.
func ParseBig(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return big.NewInt(0), nil
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("bad integer %q", s)
	}
	return v, nil
}

// Getenv returns the trimmed env var or a default, checking both cases
// of the key.
func Getenv(key, def string) string {
	for _, k := range []string{key, strings.ToLower(key)} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}
