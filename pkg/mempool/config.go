package mempool

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable recognized by the mempool core.
type Config struct {
	MaxMempoolSize     int64 // bytes
	MempoolExpiry      time.Duration
	LimitAncestorCount   int64
	LimitAncestorSize    int64 // vbytes
	LimitDescendantCount int64
	LimitDescendantSize  int64 // vbytes
	MinRelayFee        int64 // units per 1000 vbytes
	MaxOrphanTx        int
	SaveOnShutdown     bool

	MaxStandardTxWeight int64
	RequireStandard     bool
	AllowRBF            bool
	DustThreshold       int64
	MaxSigOps           int

	RollingFeeHalflife       time.Duration
	MaxReconciliationWork    int64
	OrphanSweepInterval      time.Duration
	PersistInterval          time.Duration
	DataDir                  string
}

// DefaultConfig mirrors Bitcoin Core's mainnet policy defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxMempoolSize:        300 * 1024 * 1024,
		MempoolExpiry:         72 * time.Hour,
		LimitAncestorCount:    25,
		LimitAncestorSize:     101000,
		LimitDescendantCount:  25,
		LimitDescendantSize:   101000,
		MinRelayFee:           1000,
		MaxOrphanTx:           100,
		SaveOnShutdown:        true,
		MaxStandardTxWeight:   400000,
		RequireStandard:       true,
		AllowRBF:              true,
		DustThreshold:         546,
		MaxSigOps:             4000,
		RollingFeeHalflife:    12 * time.Hour,
		MaxReconciliationWork: 1_000_000,
		OrphanSweepInterval:   5 * time.Minute,
		PersistInterval:       15 * time.Minute,
		DataDir:               "./data/mempool",
	}
}

// LoadFromEnv loads overrides from the environment.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("MEMPOOL_MAX_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxMempoolSize = n
		}
	}
	if v := os.Getenv("MEMPOOL_EXPIRY_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MempoolExpiry = time.Duration(n) * time.Hour
		}
	}
	if v := os.Getenv("MEMPOOL_LIMIT_ANCESTOR_COUNT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.LimitAncestorCount = n
		}
	}
	if v := os.Getenv("MEMPOOL_LIMIT_ANCESTOR_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.LimitAncestorSize = n
		}
	}
	if v := os.Getenv("MEMPOOL_LIMIT_DESCENDANT_COUNT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.LimitDescendantCount = n
		}
	}
	if v := os.Getenv("MEMPOOL_LIMIT_DESCENDANT_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.LimitDescendantSize = n
		}
	}
	if v := os.Getenv("MEMPOOL_MIN_RELAY_FEE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MinRelayFee = n
		}
	}
	if v := os.Getenv("MEMPOOL_MAX_ORPHAN_TX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxOrphanTx = n
		}
	}
	if v := os.Getenv("MEMPOOL_SAVE_ON_SHUTDOWN"); v != "" {
		cfg.SaveOnShutdown = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("MEMPOOL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	return cfg
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.MaxMempoolSize <= 0 {
		return fmt.Errorf("max mempool size must be positive")
	}
	if c.LimitAncestorCount <= 0 || c.LimitDescendantCount <= 0 {
		return fmt.Errorf("ancestor/descendant count limits must be positive")
	}
	if c.LimitAncestorSize <= 0 || c.LimitDescendantSize <= 0 {
		return fmt.Errorf("ancestor/descendant size limits must be positive")
	}
	if c.MinRelayFee < 0 {
		return fmt.Errorf("min relay fee cannot be negative")
	}
	if c.MaxOrphanTx < 0 {
		return fmt.Errorf("max orphan tx cannot be negative")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	return nil
}

func (c *Config) limits() Limits {
	return Limits{
		MaxAncestorCount:   c.LimitAncestorCount,
		MaxAncestorSize:    c.LimitAncestorSize,
		MaxDescendantCount: c.LimitDescendantCount,
		MaxDescendantSize:  c.LimitDescendantSize,
	}
}

// String renders the configuration for startup logging.
func (c *Config) String() string {
	return fmt.Sprintf(`Mempool Configuration:
  Max Size:            %d bytes
  Expiry:              %v
  Ancestor Limits:     count=%d size=%d
  Descendant Limits:   count=%d size=%d
  Min Relay Fee:       %d
  Max Orphan Tx:       %d
  Save On Shutdown:    %v
  Data Dir:            %s`,
		c.MaxMempoolSize, c.MempoolExpiry,
		c.LimitAncestorCount, c.LimitAncestorSize,
		c.LimitDescendantCount, c.LimitDescendantSize,
		c.MinRelayFee, c.MaxOrphanTx, c.SaveOnShutdown, c.DataDir)
}
