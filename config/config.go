package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	GatewayAddress string `toml:"GatewayAddress"`
	DataDir        string `toml:"DataDir"`
	Environment    string `toml:"Environment"`

	Operator string `toml:"Operator"`

	ChainEndpoints      []string `toml:"ChainEndpoints"`
	RegistryEndpoints   []string `toml:"RegistryEndpoints"`
	PayoutEndpoints     []string `toml:"PayoutEndpoints"`
	ClassifierEndpoints []string `toml:"ClassifierEndpoints"`
	RequestTimeoutSecs  int      `toml:"RequestTimeoutSecs"`

	HistoryDSN string `toml:"HistoryDSN"`

	MaxSubmissionsPerCycle uint64  `toml:"MaxSubmissionsPerCycle"`
	RewardPerSubmission    string  `toml:"RewardPerSubmission"`
	CycleLengthBlocks      uint64  `toml:"CycleLengthBlocks"`
	GateRequired           bool    `toml:"GateRequired"`
	ValidityThreshold      float64 `toml:"ValidityThreshold"`

	RPCToken        string  `toml:"RPCToken"`
	JWTSecret       string  `toml:"JWTSecret"`
	RateLimitPerMin float64 `toml:"RateLimitPerMin"`
	RateLimitBurst  int     `toml:"RateLimitBurst"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8545"
	}
	if strings.TrimSpace(c.GatewayAddress) == "" {
		c.GatewayAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.RequestTimeoutSecs <= 0 {
		c.RequestTimeoutSecs = 10
	}
	if c.MaxSubmissionsPerCycle == 0 {
		c.MaxSubmissionsPerCycle = 2
	}
	if strings.TrimSpace(c.RewardPerSubmission) == "" {
		c.RewardPerSubmission = "1000000000000000000"
	}
	if c.CycleLengthBlocks == 0 {
		c.CycleLengthBlocks = 8640
	}
	if c.ValidityThreshold <= 0 {
		c.ValidityThreshold = 0.5
	}
	if c.RateLimitPerMin <= 0 {
		c.RateLimitPerMin = 60
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 10
	}
}

// Validate checks the invariants that cannot be defaulted away.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Operator) == "" {
		return fmt.Errorf("operator address is required")
	}
	if _, ok := new(big.Int).SetString(c.RewardPerSubmission, 10); !ok {
		return fmt.Errorf("reward per submission %q is not a base-10 integer", c.RewardPerSubmission)
	}
	if c.ValidityThreshold > 1 {
		return fmt.Errorf("validity threshold must be within (0, 1]")
	}
	return nil
}

// RewardAmount parses the configured per-submission reward.
func (c *Config) RewardAmount() *big.Int {
	amount, _ := new(big.Int).SetString(c.RewardPerSubmission, 10)
	return amount
}

// GrantStorePath returns the location of the persistent grant cache.
func (c *Config) GrantStorePath() string {
	return filepath.Join(c.DataDir, "grants.db")
}

// LedgerDBPath returns the location of the ledger snapshot database.
func (c *Config) LedgerDBPath() string {
	return filepath.Join(c.DataDir, "ledger")
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Operator: "0x0000000000000000000000000000000000000000",
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
