package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tluyben/lawyeredup/config"
	"github.com/tluyben/lawyeredup/flow"
	"github.com/tluyben/lawyeredup/legal"
	"github.com/tluyben/lawyeredup/library"
	"github.com/tluyben/lawyeredup/log"
	"github.com/tluyben/lawyeredup/provider"
)

type lawyeredup struct {
	cfg *config.Config
	log *slog.Logger
}

var ErrUnknownProvider = errors.New("unknown provider")

func main() {
	l := &lawyeredup{}
	if err := l.newApp().Run(os.Args); err != nil {
		if l.log != nil {
			l.log.Error("Command failed", log.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func (l *lawyeredup) newApp() *cli.App {
	return &cli.App{
		Name:  "lawyeredup",
		Usage: "Run structured legal-document flows against a language model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path of the .env file to load",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "flows",
				Usage: "Directory of flow definitions overriding the built-in flows",
			},
		},
		Before: l.setup,
		Commands: []*cli.Command{
			{
				Name:   "flows",
				Usage:  "List the available flows",
				Action: l.listFlows,
			},
			{
				Name:      "render",
				Usage:     "Validate an input and print the rendered prompt",
				ArgsUsage: "<flow> [input.json|-]",
				Action:    l.render,
			},
			{
				Name:      "run",
				Usage:     "Invoke a flow and print its validated output",
				ArgsUsage: "<flow> [input.json|-]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Write the output to a file instead of stdout",
					},
				},
				Action: l.run,
			},
			{
				Name:      "index",
				Usage:     "Index every text contract below a directory",
				ArgsUsage: "<dir>",
				Action:    l.index,
			},
			{
				Name:      "search",
				Usage:     "Search the contract library",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: library.DefaultLimit,
					},
				},
				Action: l.search,
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the best matching contract",
				ArgsUsage: "<question>",
				Action:    l.ask,
			},
			{
				Name:   "serve",
				Usage:  "Start the HTTP API",
				Action: l.serve,
			},
		},
	}
}

func (l *lawyeredup) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return err
	}
	if dir := c.String("flows"); dir != "" {
		cfg.FlowsDir = dir
	}
	logger, err := log.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	l.cfg = cfg
	l.log = logger
	return nil
}

func (l *lawyeredup) registry() (*flow.Registry, error) {
	return legal.NewRegistry(l.cfg.FlowsDir)
}

// executor builds the registry and the configured provider. Only commands
// that call a model need a valid provider configuration
func (l *lawyeredup) executor(ctx context.Context) (*flow.Executor, error) {
	if err := l.cfg.Validate(); err != nil {
		return nil, err
	}
	reg, err := l.registry()
	if err != nil {
		return nil, err
	}
	p, err := newProvider(ctx, l.cfg, l.log)
	if err != nil {
		return nil, err
	}
	l.log.Debug("Provider ready",
		slog.String("provider", l.cfg.Provider),
		slog.String("model", l.cfg.ModelName()),
	)
	return flow.NewExecutor(reg, p, l.log), nil
}

func newProvider(
	ctx context.Context, cfg *config.Config, logger *slog.Logger,
) (provider.Provider, error) {
	var (
		p   provider.Provider
		err error
	)
	switch cfg.Provider {
	case config.ProviderAnthropic:
		p, err = provider.NewAnthropic(cfg.AnthropicKey, cfg.ModelName(),
			int64(cfg.MaxTokens), cfg.Timeout, logger,
		)
	case config.ProviderGemini:
		p, err = provider.NewGemini(ctx, cfg.GeminiKey, cfg.ModelName(),
			int32(cfg.MaxTokens), cfg.Timeout,
		)
	case config.ProviderOpenRouter:
		p, err = provider.NewOpenRouter(
			cfg.OpenRouterKey, cfg.ModelName(), cfg.Timeout,
		)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
