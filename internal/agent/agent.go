// Copyright © 2017 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

// Package agent drives metric name formatting: it builds the tag
// policies from the running configuration and rewrites the metric
// names supplied on the command line or stdin.
package agent

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/hchepey-clari/conductor/internal/config"
	"github.com/hchepey-clari/conductor/internal/release"
	"github.com/hchepey-clari/conductor/internal/tags"
	appstats "github.com/maier/go-appstats"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// Agent holds the metric name formatting process.
type Agent struct {
	rewriter   *tags.Rewriter
	expansions []string
	streamTags bool
	batchSize  int
	shutdown   context.CancelFunc
	signalCh   chan os.Signal
	logger     zerolog.Logger
}

const (
	defaultBatchSize = 512

	statNamesTotal    = "names_total"
	statNamesFallback = "names_fallback"
)

// New returns a new agent instance.
func New() (*Agent, error) {
	a := Agent{
		batchSize: defaultBatchSize,
		signalCh:  make(chan os.Signal, 10),
		logger:    log.With().Str("pkg", "agent").Logger(),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validate")
	}

	a.expansions = viper.GetStringSlice(config.KeyTagExpansions)
	a.streamTags = viper.GetBool(config.KeyTagStreamTags)

	exclusions, err := a.loadExclusions()
	if err != nil {
		return nil, err
	}

	formats, err := a.loadFormats()
	if err != nil {
		return nil, err
	}

	values, err := tags.NewValuePatterns(formats)
	if err != nil {
		return nil, errors.Wrap(err, "init tag value formatter")
	}

	a.rewriter, err = tags.NewRewriter(tags.NewExclusions(exclusions), values)
	if err != nil {
		return nil, errors.Wrap(err, "init rewriter")
	}

	return &a, nil
}

// Start formats the metric names in args, or read from stdin when
// there are none, writing the results to stdout. It returns when the
// input is exhausted or a shutdown signal is received.
func (a *Agent) Start(args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	a.shutdown = cancel
	defer a.Stop()

	a.signalNotifySetup()
	go a.handleSignals(ctx)

	a.logger.Debug().
		Int("pid", os.Getpid()).
		Str("name", release.NAME).
		Str("ver", release.VERSION).
		Strs("expansions", a.expansions).
		Bool("stream_tags", a.streamTags).Msg("Starting")

	return a.Run(ctx, args, os.Stdin, os.Stdout)
}

// Stop cleans up and shuts down the Agent.
func (a *Agent) Stop() {
	a.stopSignalHandler()
	if a.shutdown != nil {
		a.shutdown()
	}
}

// stopSignalHandler disables the signal handler.
func (a *Agent) stopSignalHandler() {
	signal.Stop(a.signalCh)
	signal.Reset() // so a second ctrl-c will force immediate stop
}

// Run writes one formatted name per configured expansion, for each
// metric name, in input order. Names are taken from args, or read one
// per line from in when args is empty (blank lines are ignored).
func (a *Agent) Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	w := bufio.NewWriter(out)

	if len(args) > 0 {
		if err := a.writeBatch(ctx, w, args); err != nil {
			return err
		}
		return errors.Wrap(w.Flush(), "writing formatted names")
	}

	scanner := bufio.NewScanner(in)
	batch := make([]string, 0, a.batchSize)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		batch = append(batch, name)
		if len(batch) < a.batchSize {
			continue
		}
		if err := a.writeBatch(ctx, w, batch); err != nil {
			return err
		}
		batch = batch[:0]
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "reading metric names")
	}

	if len(batch) > 0 {
		if err := a.writeBatch(ctx, w, batch); err != nil {
			return err
		}
	}

	return errors.Wrap(w.Flush(), "writing formatted names")
}

func (a *Agent) writeBatch(ctx context.Context, w *bufio.Writer, names []string) error {
	formatted, err := a.formatBatch(ctx, names)
	if err != nil {
		return err
	}

	for _, lines := range formatted {
		for _, line := range lines {
			if _, err := w.WriteString(line + "\n"); err != nil {
				return errors.Wrap(err, "writing formatted names")
			}
		}
	}

	return nil
}

// formatBatch formats names concurrently, results are in the order of names.
func (a *Agent) formatBatch(ctx context.Context, names []string) ([][]string, error) {
	results := make([][]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i := range names {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.formatName(names[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "formatting metric names")
	}

	return results, nil
}

func (a *Agent) formatName(raw string) []string {
	lines := make([]string, len(a.expansions))
	fallback := false

	format := a.rewriter.FormatResult
	if a.streamTags {
		format = a.rewriter.FormatStreamTagsResult
	}

	for i, expansion := range a.expansions {
		name, ok := format(raw, expansion)
		if !ok {
			fallback = true
		}
		lines[i] = name
	}

	_ = appstats.IncrementInt(statNamesTotal)
	if fallback {
		_ = appstats.IncrementInt(statNamesFallback)
	}

	return lines
}

func (a *Agent) loadExclusions() (map[string][]string, error) {
	file := viper.GetString(config.KeyTagExcludeFile)
	if file == "" {
		return nil, nil
	}

	cfg, err := config.LoadTagExclusions(file)
	if err != nil {
		if errors.Cause(err) == config.ErrConfigNotFound {
			a.logger.Warn().Err(err).Msg("using global tag exclusions only")
			return nil, nil
		}
		return nil, err
	}

	a.logger.Debug().Str("file", file).Int("metrics", len(cfg)).Msg("loaded tag exclusions")
	return cfg, nil
}

func (a *Agent) loadFormats() (map[string]map[string]string, error) {
	file := viper.GetString(config.KeyTagFormatFile)
	if file == "" {
		return nil, nil
	}

	cfg, err := config.LoadTagFormats(file)
	if err != nil {
		if errors.Cause(err) == config.ErrConfigNotFound {
			a.logger.Warn().Err(err).Msg("tag values will not be formatted")
			return nil, nil
		}
		return nil, err
	}

	a.logger.Debug().Str("file", file).Int("metrics", len(cfg)).Msg("loaded tag value formats")
	return cfg, nil
}
