package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/relay"
	"github.com/interlay/interbtc-sub005/relay/store"
)

const (
	initSubCmd          = "init"
	submitHeadersSubCmd = "submit-headers"
	markNoDataSubCmd    = "mark-nodata"
	markInvalidSubCmd   = "mark-invalid"
	statusSubCmd        = "status"
	verifyPaymentSubCmd = "verify-payment"
	syncSubCmd          = "sync"
	fetchProofSubCmd    = "fetch-proof"

	defaultConfigFilename = "btcrelay.conf"
	defaultLogFilename    = "btcrelay.log"
	defaultLogLevel       = "info"
	defaultRPCConnect     = "localhost:8332"
	defaultMaxSyncHeaders = 2000
)

var (
	defaultHomeDir    = btcutil.AppDataDir("btcrelay", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
)

type globalConfig struct {
	ConfigFile   string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir      string `short:"b" long:"datadir" description:"Directory to store data"`
	Network      string `long:"network" description:"Bitcoin network {mainnet,testnet3,regtest,signet,simnet}"`
	DbType       string `long:"dbtype" description:"Journal backend {bolt,leveldb}"`
	LogLevel     string `long:"loglevel" description:"Logging level {debug,info,warn,error}"`
	NoLogFile    bool   `long:"nologfile" description:"Log to stderr only"`
	LedgerHeight uint64 `long:"ledgerheight" description:"Ledger height recorded with new headers and compared against ledger confirmations"`

	Confirmations       uint32 `long:"confirmations" description:"Bitcoin confirmations a payment needs when the request names none"`
	LedgerConfirmations uint64 `long:"ledgerconfirmations" description:"Ledger blocks that must pass after a header is stored"`
	NoDifficultyCheck   bool   `long:"nodifficultycheck" description:"Skip difficulty and timestamp checks on headers"`
	NoInclusionCheck    bool   `long:"noinclusioncheck" description:"Skip merkle inclusion checks"`
	MinDifficultyBlocks bool   `long:"mindifficultyblocks" description:"Accept testnet min-difficulty headers"`
	MinHeaderVersion    int32  `long:"minheaderversion" description:"Lowest accepted header version"`
	PowLimitBits        uint32 `long:"powlimitbits" base:"16" description:"Compact pow limit in hex, overriding the network's"`
	MaxOpReturnSize     int    `long:"maxopreturnsize" description:"Largest accepted OP_RETURN script in bytes"`
}

type initConfig struct {
	Header string `long:"header" description:"Initial block header (hex)" required:"true"`
	Height uint32 `long:"height" description:"Height of the initial header" required:"true"`
}

type submitHeadersConfig struct {
	File string `long:"file" description:"Headers, one hex header per line or raw concatenated bytes; - reads stdin"`
}

type markConfig struct {
	Height uint32 `long:"height" description:"Height of the main chain header to mark" required:"true"`
}

type statusConfig struct{}

type verifyPaymentConfig struct {
	Tx        string `long:"tx" description:"Raw transaction (hex)" required:"true"`
	Proof     string `long:"proof" description:"gettxoutproof output (hex)"`
	Block     string `long:"block" description:"Hash of the block holding the transaction" required:"true"`
	Recipient string `long:"recipient" description:"Address that must be paid" required:"true"`
	Amount    int64  `long:"amount" description:"Minimum amount in satoshi" required:"true"`
	Tag       string `long:"tag" description:"Expected OP_RETURN payload (hex)"`
}

type rpcConfig struct {
	RPCConnect string `long:"rpcconnect" description:"bitcoind RPC host:port"`
	RPCUser    string `long:"rpcuser" description:"bitcoind RPC username"`
	RPCPass    string `long:"rpcpass" default-mask:"-" description:"bitcoind RPC password"`
	RPCTLS     bool   `long:"rpctls" description:"Use TLS for the RPC connection"`
}

type syncConfig struct {
	rpcConfig
	MaxHeaders uint32 `long:"maxheaders" description:"Most headers to submit in one run"`
}

type fetchProofConfig struct {
	rpcConfig
	TxID  string `long:"txid" description:"Transaction to prove" required:"true"`
	Block string `long:"block" description:"Block holding the transaction, if the node has no tx index"`
}

type config struct {
	globalConfig
	command string
	sub     interface{}
	subs    map[string]interface{}
}

func defaultGlobalConfig() globalConfig {
	rc := relay.DefaultConfig()
	return globalConfig{
		ConfigFile:          defaultConfigFile,
		DataDir:             defaultHomeDir,
		Network:             rc.Network,
		DbType:              string(store.BackendBolt),
		LogLevel:            defaultLogLevel,
		Confirmations:       rc.RequiredConfirmations,
		LedgerConfirmations: rc.RequiredLedgerConfirmations,
		MinHeaderVersion:    rc.MinHeaderVersion,
		MaxOpReturnSize:     rc.MaxOpReturnSize,
	}
}

type subCommand struct {
	name, short, long string
	data              interface{}
}

func subCommands() []subCommand {
	return []subCommand{
		{initSubCmd, "Initialize the relay",
			"Stores the first trusted header at the given height", &initConfig{}},
		{submitHeadersSubCmd, "Submit block headers",
			"Validates and stores headers in file order, stopping at the first rejected one", &submitHeadersConfig{File: "-"}},
		{markNoDataSubCmd, "Flag a main chain header as lacking data",
			"Payments at or above the height are refused until the header leaves the main chain", &markConfig{}},
		{markInvalidSubCmd, "Flag a main chain header as invalid",
			"All payments are refused while the header is on the main chain", &markConfig{}},
		{statusSubCmd, "Show the relay state", "Prints the best header and every tracked chain as JSON", &statusConfig{}},
		{verifyPaymentSubCmd, "Verify a payment",
			"Checks inclusion, confirmation depth and outputs of a transaction", &verifyPaymentConfig{}},
		{syncSubCmd, "Sync headers from bitcoind",
			"Locates the last shared header and submits the node's headers above it",
			&syncConfig{rpcConfig: defaultRPCConfig(), MaxHeaders: defaultMaxSyncHeaders}},
		{fetchProofSubCmd, "Fetch a merkle proof from bitcoind",
			"Calls gettxoutproof and prints the proof as hex", &fetchProofConfig{rpcConfig: defaultRPCConfig()}},
	}
}

func addCommands(parser *flags.Parser, cmds []subCommand) error {
	for _, c := range cmds {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return errors.Wrapf(err, "register command %s", c.name)
		}
	}
	return nil
}

func newParser(cfg *config) (*flags.Parser, error) {
	parser := flags.NewParser(&cfg.globalConfig, flags.HelpFlag)
	cmds := subCommands()
	if err := addCommands(parser, cmds); err != nil {
		return nil, err
	}
	cfg.subs = make(map[string]interface{}, len(cmds))
	for _, c := range cmds {
		cfg.subs[c.name] = c.data
	}
	return parser, nil
}

func defaultRPCConfig() rpcConfig {
	return rpcConfig{RPCConnect: defaultRPCConnect}
}

// parseCommandLine reads the config file named by --configfile, if any, and
// then the command line, which takes precedence.
func parseCommandLine(args []string) (*config, error) {
	preCfg := defaultGlobalConfig()
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			// Let the full parser render help with the subcommands.
			return nil, parseHelp(args)
		}
		return nil, err
	}

	cfg := &config{globalConfig: defaultGlobalConfig()}
	parser, err := newParser(cfg)
	if err != nil {
		return nil, err
	}
	if preCfg.ConfigFile != "" {
		err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		switch {
		case err == nil:
		case os.IsNotExist(errors.Cause(err)) && preCfg.ConfigFile == defaultConfigFile:
		default:
			return nil, errors.Wrapf(err, "config file %s", preCfg.ConfigFile)
		}
	}
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg.command = parser.Active.Name
	cfg.sub = cfg.subs[parser.Active.Name]
	cfg.Network = strings.ToLower(strings.TrimSpace(cfg.Network))
	if cfg.DataDir == "" {
		return nil, errors.New("datadir is required")
	}
	if _, err := store.ParseBackend(cfg.DbType); err != nil {
		return nil, err
	}
	if _, err := cfg.relayConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseHelp(args []string) error {
	cfg := &config{globalConfig: defaultGlobalConfig()}
	parser, err := newParser(cfg)
	if err != nil {
		return err
	}
	_, err = parser.ParseArgs(args)
	return err
}

func (c *globalConfig) relayConfig() (relay.Config, error) {
	rc := relay.Config{
		Network:                     c.Network,
		RequiredConfirmations:       c.Confirmations,
		RequiredLedgerConfirmations: c.LedgerConfirmations,
		DisableDifficultyCheck:      c.NoDifficultyCheck,
		DisableInclusionCheck:       c.NoInclusionCheck,
		MaxOpReturnSize:             c.MaxOpReturnSize,
		AllowMinDifficultyBlocks:    c.MinDifficultyBlocks,
		MinHeaderVersion:            c.MinHeaderVersion,
		PowLimitBits:                c.PowLimitBits,
	}
	return rc, relay.ValidateConfig(rc)
}
