package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/interlay/interbtc-sub005/relay"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one subcommand. Exit codes: 0 success, 1 the relay refused the
// request, 2 bad configuration or an I/O failure.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseCommandLine(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			_, _ = fmt.Fprintln(stdout, err)
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}

	logger, closeLog, err := initLogging(cfg, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "log setup failed: %v\n", err)
		return 2
	}
	defer closeLog()

	if cfg.command == fetchProofSubCmd {
		if err := runFetchProof(cfg.sub.(*fetchProofConfig), stdout); err != nil {
			_, _ = fmt.Fprintf(stderr, "fetch-proof failed: %v\n", err)
			return 2
		}
		return 0
	}

	a, err := openApp(cfg, logger, stdin, stdout)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "relay open failed: %v\n", err)
		return 2
	}
	defer a.close()

	if err := a.dispatch(cfg.command, cfg.sub); err != nil {
		_, _ = fmt.Fprintf(stderr, "%s failed: %v\n", cfg.command, err)
		if _, ok := relay.CodeOf(err); ok && !relay.IsCode(err, relay.RELAY_ERR_STORAGE) {
			return 1
		}
		return 2
	}
	return 0
}
