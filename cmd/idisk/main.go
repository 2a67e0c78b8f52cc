package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/common"
	"github.com/OFFIS-RIT/idisk/backend/pkg/graph"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger/console"
)

var errUsage = errors.New("usage")

// config is shared by every command. Flags of a command override the
// values read from the environment.
type config struct {
	vocab         *common.Vocabulary
	discovery     string
	workers       int
	progressEvery int64
	parallel      int
	ignoreTypes   listFlag
}

func (c *config) graphClient() (*graph.GraphClient, error) {
	return graph.NewGraphClient(graph.NewGraphClientParams{
		Discovery:     graph.Discovery(c.discovery),
		Workers:       c.workers,
		ProgressEvery: c.progressEvery,
	})
}

// graphFlags registers the flags of commands that discover connections.
func (c *config) graphFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.discovery, "discovery", c.discovery, "connection discovery: pairwise or index")
	fs.IntVar(&c.workers, "workers", c.workers, "number of shards of the pairwise scan")
	fs.Var(&c.ignoreTypes, "ignore-types", "comma separated concept types to ignore")
}

func configFromEnv() (*config, error) {
	vocab, err := util.LoadVocabulary()
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return &config{
		vocab:         vocab,
		discovery:     util.GetEnvString("IDISK_DISCOVERY", string(graph.DiscoveryPairwise)),
		workers:       int(util.GetEnvNumeric("IDISK_WORKERS", 1)),
		progressEvery: int64(util.GetEnvNumeric("IDISK_PROGRESS_EVERY", int(util.DefaultProgressEvery))),
		parallel:      int(util.GetEnvNumeric("IDISK_PARALLEL_FILES", 4)),
		ignoreTypes:   listFlag{values: util.GetEnvList("IDISK_IGNORE_TYPES")},
	}, nil
}

// listFlag collects comma separated values. The first Set replaces the
// default, repeating the flag appends.
type listFlag struct {
	values   []string
	explicit bool
}

func (l *listFlag) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(l.values, ",")
}

func (l *listFlag) Set(value string) error {
	if !l.explicit {
		l.values = nil
		l.explicit = true
	}
	for v := range strings.SplitSeq(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			l.values = append(l.values, v)
		}
	}
	return nil
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, cfg *config, args []string) error
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: idisk <command> [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, cmd := range commands() {
		fmt.Fprintf(os.Stderr, "  %-20s %s\n", cmd.name, cmd.usage)
	}
}

func run(ctx context.Context, cfg *config, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	for _, cmd := range commands() {
		if cmd.name == args[0] {
			return cmd.run(ctx, cfg, args[1:])
		}
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := configFromEnv()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	start := time.Now()
	err = run(ctx, cfg, os.Args[1:])
	switch {
	case errors.Is(err, errUsage):
		if err != errUsage {
			fmt.Fprintln(os.Stderr, err)
		}
		usage()
		os.Exit(2)
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case err != nil:
		logger.Fatal("Command failed", "err", err, "warnings", logger.WarnCount())
	}
	logger.Info("Done", "duration", util.FormatDuration(time.Since(start)), "warnings", logger.WarnCount())
}
