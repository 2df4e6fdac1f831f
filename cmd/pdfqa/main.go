// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/pdfqa"
	"github.com/poiesic/pdfqa/ai"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env file is normal; anything else is worth knowing about
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "pdfqa",
		Usage:    "Ask questions about PDF documents with retrieval-augmented generation",
		Flags:    globalFlags(),
		Before:   setupLogger,
		Commands: []*cli.Command{
			serveCommand(),
			ingestCommand(),
			askCommand(),
			listCommand(),
			chatCommand(),
			reindexCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "Set logging level (debug, info, warn, error)",
			Value:   "info",
		},
		&cli.StringFlag{
			Name:    "upload-dir",
			Usage:   "Directory for uploaded PDFs, their indexes and the id mapping",
			Value:   "uploads",
			EnvVars: []string{"PDFQA_UPLOAD_DIR"},
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "Directory for the conversation store",
			Value:   "data",
			EnvVars: []string{"PDFQA_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "env",
			Usage:   "Deployment environment; production hides internal error detail",
			Value:   "development",
			EnvVars: []string{"PDFQA_ENV", "NODE_ENV"},
		},
		&cli.StringFlag{
			Name:    "provider",
			Usage:   "Default model provider for answers and chat (gemini, openai, huggingface)",
			Value:   ai.ProviderGemini,
			EnvVars: []string{"PDFQA_PROVIDER"},
		},
		&cli.StringFlag{
			Name:    "embedding-provider",
			Usage:   "Provider that embeds documents and questions",
			Value:   ai.ProviderGemini,
			EnvVars: []string{"PDFQA_EMBEDDING_PROVIDER"},
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Chunk size in characters",
			Value: 1000,
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "Overlap between consecutive chunks in characters",
			Value: 200,
		},
		&cli.StringFlag{
			Name:    "gemini-api-key",
			Usage:   "Google Generative AI API key",
			EnvVars: []string{"GOOGLE_GENAI_API_KEY", "GOOGLE_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "gemini-model",
			Usage:   "Gemini generation model",
			EnvVars: []string{"GEMINI_MODEL"},
		},
		&cli.StringFlag{
			Name:    "gemini-embedding-model",
			Usage:   "Gemini embedding model",
			EnvVars: []string{"GEMINI_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Usage:   "OpenAI API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "openai-base-url",
			Usage:   "OpenAI-compatible endpoint, e.g. http://localhost:11434/v1",
			EnvVars: []string{"OPENAI_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "openai-model",
			Usage:   "OpenAI generation model",
			EnvVars: []string{"OPENAI_MODEL"},
		},
		&cli.StringFlag{
			Name:    "openai-embedding-model",
			Usage:   "OpenAI embedding model",
			EnvVars: []string{"OPENAI_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "huggingface-api-key",
			Usage:   "Hugging Face Inference API token",
			EnvVars: []string{"HUGGINGFACE_API_KEY", "HF_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "huggingface-model",
			Usage:   "Hugging Face generation model",
			EnvVars: []string{"HUGGINGFACE_MODEL"},
		},
	}
}

// providerConfigs builds a config for every provider the flags mention.
// Gemini is always configured since it is the stock default.
func providerConfigs(c *cli.Context) []*ai.Config {
	gemini := ai.NewConfig(ai.WithProvider(ai.ProviderGemini), ai.WithAPIKey(c.String("gemini-api-key")))
	if m := c.String("gemini-model"); m != "" {
		gemini.GenerationModel = m
	}
	if m := c.String("gemini-embedding-model"); m != "" {
		gemini.EmbeddingModel = m
	}
	configs := []*ai.Config{gemini}

	if c.String("openai-api-key") != "" || c.String("openai-base-url") != "" || isProvider(c, ai.ProviderOpenAI) {
		cfg := ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI), ai.WithAPIKey(c.String("openai-api-key")))
		if u := c.String("openai-base-url"); u != "" {
			cfg.BaseURL = u
		}
		if m := c.String("openai-model"); m != "" {
			cfg.GenerationModel = m
		}
		if m := c.String("openai-embedding-model"); m != "" {
			cfg.EmbeddingModel = m
		}
		configs = append(configs, cfg)
	}

	if c.String("huggingface-api-key") != "" || isProvider(c, ai.ProviderHuggingFace) {
		cfg := ai.NewConfig(ai.WithProvider(ai.ProviderHuggingFace), ai.WithAPIKey(c.String("huggingface-api-key")))
		if m := c.String("huggingface-model"); m != "" {
			cfg.GenerationModel = m
		}
		configs = append(configs, cfg)
	}
	return configs
}

// isProvider reports whether name is selected as default or embedding provider.
func isProvider(c *cli.Context, name string) bool {
	return ai.CanonicalName(c.String("provider")) == name ||
		ai.CanonicalName(c.String("embedding-provider")) == name
}

// appOptions translates the global flags into pdfqa options.
func appOptions(c *cli.Context) []pdfqa.Option {
	opts := []pdfqa.Option{
		pdfqa.WithUploadDir(c.String("upload-dir")),
		pdfqa.WithDataDir(c.String("data-dir")),
		pdfqa.WithProduction(strings.EqualFold(c.String("env"), "production")),
		pdfqa.WithDefaultProvider(c.String("provider")),
		pdfqa.WithEmbeddingProvider(c.String("embedding-provider")),
		pdfqa.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")),
	}
	for _, cfg := range providerConfigs(c) {
		opts = append(opts, pdfqa.WithProvider(cfg))
	}
	return opts
}

func openApp(c *cli.Context, extra ...pdfqa.Option) (*pdfqa.App, error) {
	app, err := pdfqa.New(c.Context, append(appOptions(c), extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return app, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// elapsed formats a duration for progress output.
func elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
