package relay

import (
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/consensus"
)

// Config holds the knobs owned by the embedding ledger. The relay never
// changes it after construction.
type Config struct {
	Network string `json:"network"`

	// RequiredConfirmations is used when a payment request asks for zero.
	RequiredConfirmations uint32 `json:"required_confirmations"`
	// RequiredLedgerConfirmations is the number of ledger blocks that must
	// pass after a header is stored before payments under it are accepted.
	RequiredLedgerConfirmations uint64 `json:"required_ledger_confirmations"`

	DisableDifficultyCheck bool `json:"disable_difficulty_check"`
	DisableInclusionCheck  bool `json:"disable_inclusion_check"`

	MaxOpReturnSize int `json:"max_op_return_size"`

	// AllowMinDifficultyBlocks enables the testnet rule that a header more
	// than twenty minutes after its parent may use the pow limit.
	AllowMinDifficultyBlocks bool `json:"allow_min_difficulty_blocks"`

	MinHeaderVersion int32 `json:"min_header_version"`

	// PowLimitBits overrides the network pow limit when non-zero.
	PowLimitBits uint32 `json:"pow_limit_bits"`
}

var networks = map[string]*chaincfg.Params{
	"mainnet":  &chaincfg.MainNetParams,
	"testnet3": &chaincfg.TestNet3Params,
	"regtest":  &chaincfg.RegressionNetParams,
	"signet":   &chaincfg.SigNetParams,
	"simnet":   &chaincfg.SimNetParams,
}

func DefaultConfig() Config {
	return Config{
		Network:                     "mainnet",
		RequiredConfirmations:       6,
		RequiredLedgerConfirmations: 0,
		MaxOpReturnSize:             consensus.MaxOpReturnSize,
		MinHeaderVersion:            4,
	}
}

// NetworkParams returns the chaincfg parameters for a network name.
func NetworkParams(name string) (*chaincfg.Params, error) {
	p, ok := networks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Errorf("unknown network %q", name)
	}
	return p, nil
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Network) == "" {
		return errors.New("network is required")
	}
	if _, err := NetworkParams(cfg.Network); err != nil {
		return err
	}
	if cfg.RequiredConfirmations == 0 {
		return errors.New("required_confirmations must be > 0")
	}
	if cfg.MaxOpReturnSize < 2 {
		return errors.New("max_op_return_size must be >= 2")
	}
	if cfg.MaxOpReturnSize > consensus.MaxScriptSize {
		return errors.Errorf("max_op_return_size must be <= %d", consensus.MaxScriptSize)
	}
	if cfg.MinHeaderVersion < 0 {
		return errors.New("min_header_version must be >= 0")
	}
	if cfg.PowLimitBits != 0 {
		target, err := consensus.ExtractTarget(cfg.PowLimitBits)
		if err != nil {
			return errors.Wrapf(err, "invalid pow_limit_bits %08x", cfg.PowLimitBits)
		}
		if target.Sign() <= 0 {
			return errors.Errorf("pow_limit_bits %08x expands to zero", cfg.PowLimitBits)
		}
	}
	return nil
}

// Params returns the chaincfg parameters of cfg.Network.
func (cfg Config) Params() (*chaincfg.Params, error) {
	return NetworkParams(cfg.Network)
}

// PowLimit is the easiest target a header may carry.
func (cfg Config) PowLimit() (*big.Int, error) {
	if cfg.PowLimitBits != 0 {
		return consensus.ExtractTarget(cfg.PowLimitBits)
	}
	p, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(p.PowLimit), nil
}
