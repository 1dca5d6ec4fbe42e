package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/relay/store"
)

const (
	logRotateThresholdKB = 10 * 1024
	logMaxRolls          = 3
)

// initLogging builds the relay logger. Records go to stderr and, unless
// disabled, to a rotated file under the data directory. The returned func
// flushes and closes the file.
func initLogging(cfg *config, stderr io.Writer) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, nil, errors.Wrapf(err, "bad log level %q", cfg.LogLevel)
	}

	w := stderr
	closeFn := func() {}
	if !cfg.NoLogFile {
		logDir := store.LogDir(cfg.DataDir)
		if err := os.MkdirAll(logDir, 0o700); err != nil {
			return nil, nil, errors.Wrap(err, "create log directory")
		}
		r, err := rotator.New(filepath.Join(logDir, defaultLogFilename), logRotateThresholdKB, false, logMaxRolls)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create log rotator")
		}
		w = io.MultiWriter(stderr, r)
		closeFn = func() { _ = r.Close() }
	}

	rpcLog := btclog.NewBackend(w).Logger("RPCC")
	if lvl, ok := btclog.LevelFromString(strings.ToLower(cfg.LogLevel)); ok {
		rpcLog.SetLevel(lvl)
	}
	rpcclient.UseLogger(rpcLog)

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}
