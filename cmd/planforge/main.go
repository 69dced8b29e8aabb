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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/planforge"
	"github.com/poiesic/planforge/ai"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "planforge",
		Usage: "Generate grounded development plans from a document corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Load a document corpus into the knowledge store",
				Action:    ingestCommand,
				Flags:     append(commonFlags(), corpusFlags()...),
				ArgsUsage: " ",
			},
			{
				Name:      "generate",
				Usage:     "Generate a development plan draft for a subject",
				Action:    generateCommand,
				Flags:     commonFlags(),
				ArgsUsage: "SUBJECT",
			},
			{
				Name:      "search",
				Usage:     "Search the knowledge store",
				Action:    searchCommand,
				Flags:     append(commonFlags(), searchFlags()...),
				ArgsUsage: "QUERY",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "openai-host",
			Usage:   "OpenAI-compatible chat service host URL",
			EnvVars: []string{ai.EnvOpenAIBaseURL},
		},
		&cli.StringFlag{
			Name:    "openai-model",
			Usage:   "Chat model name",
			EnvVars: []string{ai.EnvOpenAIModel},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			EnvVars: []string{ai.EnvEmbeddingHost},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{ai.EnvEmbeddingModel},
		},
		&cli.IntFlag{
			Name:    "embedding-dimension",
			Usage:   "Target embedding dimension",
			EnvVars: []string{ai.EnvEmbeddingDim},
		},
	}
}

func corpusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "corpus",
			Aliases:  []string{"c"},
			Usage:    "Directory of extract-stage JSON documents",
			Required: true,
		},
		&cli.IntFlag{
			Name:    "chunk-size",
			Usage:   "Fixed-window chunk size in characters",
			EnvVars: []string{ai.EnvChunkSize},
		},
		&cli.IntFlag{
			Name:    "chunk-overlap",
			Usage:   "Overlap between consecutive chunks in characters",
			EnvVars: []string{ai.EnvChunkOverlap},
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "top-k",
			Aliases: []string{"k"},
			Usage:   "Maximum number of results",
			EnvVars: []string{ai.EnvTopK},
		},
		&cli.Float64Flag{
			Name:    "min-similarity",
			Usage:   "Minimum similarity score for results (0 disables the gate, negative uses the configured default)",
			Value:   -1,
			EnvVars: []string{ai.EnvMinSimilarity},
		},
	}
}

// buildConfig layers CLI flags over the environment-derived defaults.
func buildConfig(c *cli.Context) *ai.Config {
	config := ai.ConfigFromEnv()

	if v := c.String("openai-host"); v != "" {
		config.OpenAIBaseURL = v
	}
	if v := c.String("openai-model"); v != "" {
		config.OpenAIModel = v
	}
	if v := c.String("embedding-host"); v != "" {
		config.EmbeddingHost = v
	}
	if v := c.String("embedding-model"); v != "" {
		config.EmbeddingModel = v
	}
	if v := c.Int("embedding-dimension"); v > 0 {
		config.EmbeddingDimension = v
	}
	if v := c.Int("chunk-size"); v > 0 {
		config.ChunkSize = v
	}
	if v := c.Int("chunk-overlap"); v > 0 {
		config.ChunkOverlap = v
	}
	if v := c.Int("top-k"); v > 0 {
		config.TopK = v
	}
	if v := c.Float64("min-similarity"); v > 0 {
		config.MinSimilarity = float32(v)
	}

	return config
}

func ingestCommand(c *cli.Context) error {
	service, err := planforge.NewService(c.String("db"),
		planforge.WithConfig(buildConfig(c)),
		planforge.WithIngestProgress(os.Stderr),
	)
	if err != nil {
		return err
	}
	defer service.Close()

	summary, err := service.Ingest(context.Background(), c.String("corpus"))
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d documents (%d chunks: %d embedded, %d degraded, %d failed)\n",
		summary.Documents, summary.Chunks, summary.Embedded, summary.Degraded, summary.Failed)
	return nil
}

func generateCommand(c *cli.Context) error {
	subject := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if subject == "" {
		return fmt.Errorf("subject is required")
	}

	service, err := planforge.NewService(c.String("db"),
		planforge.WithConfig(buildConfig(c)),
	)
	if err != nil {
		return err
	}
	defer service.Close()

	draft, err := service.Generate(context.Background(), subject)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	service, err := planforge.NewService(c.String("db"),
		planforge.WithConfig(buildConfig(c)),
	)
	if err != nil {
		return err
	}
	defer service.Close()

	results := service.Search(context.Background(), query,
		c.Int("top-k"), float32(c.Float64("min-similarity")))
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, result := range results {
		chunk := result.Entry.Chunk
		fmt.Printf("%d. [%.3f] %s (section %d)\n", i+1, result.Score, chunk.SourceDocument, chunk.Ordinal)
		fmt.Printf("   %s\n", excerpt(chunk.Text, 200))
	}
	return nil
}

// excerpt returns the first limit runes of text on a single line.
func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
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
