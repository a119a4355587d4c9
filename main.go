package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/dialogue-arena/clients"
	cfg "github.com/maastricht-university/dialogue-arena/config"
	"github.com/maastricht-university/dialogue-arena/orchestrator"
)

var log = logrus.New()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("arena failed")
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var conf *cfg.Root

	root := &cobra.Command{
		Use:           "arena",
		Short:         "Two-speaker spoken dialogue arena",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}
			conf = c
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return runArena(cmd.Context(), conf) },
	}

	f := root.PersistentFlags()
	f.StringVar(&configPath, "config", "", "path to config.yaml")
	f.String("provider", "", "generation backend: openai or gemini")
	f.Int("turns", 0, "number of dialogue turns")
	f.String("transcript-policy", "", "prefer_content or prefer_transcript")
	f.String("outputs", "", "directory receiving run directories")
	f.String("ground-truth", "", "directory of reference recordings for MOS")
	f.String("chat-url", "", "base URL of the chat completions service")
	f.String("mos-url", "", "base URL of the DNSMOS service")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("log-format", "", "text or json")
	f.String("addr", "", "listen address for serve")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Generate a dialogue and evaluate it",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return runArena(cmd.Context(), conf) },
		},
		&cobra.Command{
			Use:   "mos <run-dir>",
			Short: "Recompute MOS results for an existing run directory",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return runMOS(cmd.Context(), conf, args[0]) },
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve finished runs over HTTP",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return serve(cmd.Context(), conf) },
		},
	)
	return root
}

// loadConfig resolves defaults < file < ARENA_* env < flags and sets up the
// logger from the result.
func loadConfig(cmd *cobra.Command, path string) (*cfg.Root, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := cfg.Load(path)
	if err != nil {
		return nil, err
	}
	v, err := cfg.NewViper(cmd.Flags())
	if err != nil {
		return nil, err
	}
	cfg.Overlay(v, c)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := c.ConfigureLogger(log); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"pipeline": c.Pipeline.Name,
		"version":  c.Pipeline.Version,
		"provider": c.Provider,
	}).Debug("config loaded")
	return c, nil
}

// newCompleter returns the generation backend and a func releasing it.
func newCompleter(ctx context.Context, c *cfg.Root, h *clients.HTTP) (orchestrator.Completer, func(), error) {
	switch c.Provider {
	case cfg.ProviderGemini:
		if c.GeminiKey == "" {
			return nil, nil, errors.New("GEMINI_API_KEY is not set")
		}
		g, err := clients.NewGemini(ctx, c.GeminiKey, c.TTS.LanguageCode, c.TTS.SampleRate)
		if err != nil {
			return nil, nil, err
		}
		return g, func() {
			if err := g.Close(); err != nil {
				log.WithError(err).Warn("closing gemini clients")
			}
		}, nil
	default:
		if c.OpenAIKey == "" {
			log.Warn("OPENAI_API_KEY is not set; requests are sent without credentials")
		}
		return clients.NewOpenAI(h, c.Services.Chat.URL, c.OpenAIKey), func() {}, nil
	}
}

func runArena(ctx context.Context, c *cfg.Root) error {
	h := clients.NewHTTP()
	llm, closeLLM, err := newCompleter(ctx, c, h)
	if err != nil {
		return err
	}
	defer closeLLM()

	p, err := orchestrator.NewPipeline(c, llm, clients.NewMOS(h, c.Services.MOS.URL), log)
	if err != nil {
		return err
	}
	run, err := p.Run(ctx)
	if err != nil {
		if run != nil {
			return fmt.Errorf("run %s: %w", run.Dir, err)
		}
		return err
	}
	fmt.Println(run.Dir)
	return nil
}

func runMOS(ctx context.Context, c *cfg.Root, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	h := clients.NewHTTP()
	// the dialogue is not regenerated, so no completer is needed
	p, err := orchestrator.NewPipeline(c, nil, clients.NewMOS(h, c.Services.MOS.URL), log)
	if err != nil {
		return err
	}
	_, err = p.ScoreDir(ctx, dir)
	return err
}
