package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/pdfqa"
	"github.com/poiesic/pdfqa/chat"
	"github.com/poiesic/pdfqa/reindex"
	"github.com/poiesic/pdfqa/search"
	"github.com/poiesic/pdfqa/vectorindex"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address",
				Value:   ":3000",
				EnvVars: []string{"PDFQA_ADDR"},
			},
			&cli.StringFlag{
				Name:    "port",
				Usage:   "Listen port, overrides the port of --addr",
				EnvVars: []string{"PORT"},
			},
			&cli.Int64Flag{
				Name:  "max-upload-size",
				Usage: "Largest accepted upload in bytes",
				Value: 10 << 20,
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	addr := c.String("addr")
	if port := c.String("port"); port != "" {
		addr = ":" + port
	}

	app, err := openApp(c,
		pdfqa.WithAddr(addr),
		pdfqa.WithMaxUploadSize(c.Int64("max-upload-size")),
	)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := app.NewServer()
	if err != nil {
		return err
	}
	return srv.Run(c.Context)
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Index one or more PDFs already on disk",
		ArgsUsage: "<file.pdf>...",
		Action:    ingestAction,
	}
}

func ingestAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one PDF path is required")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	var failed int
	for _, path := range c.Args().Slice() {
		start := time.Now()
		res, err := app.Pipeline().IngestFile(c.Context, path, filepath.Base(path))
		if err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%d pages\t%d chunks\t%s\n",
			res.Document.ID, res.Document.Filename, res.PageCount, res.ChunkCount, elapsed(time.Since(start)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, c.NArg())
	}
	return nil
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question about an ingested PDF",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Document id",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Generation model override",
			},
			&cli.StringFlag{
				Name:  "use",
				Usage: "Provider override for this question",
			},
			&cli.Float64Flag{
				Name:  "temperature",
				Usage: "Sampling temperature",
				Value: search.DefaultTemperature,
			},
			&cli.IntFlag{
				Name:  "k",
				Usage: "Number of passages to retrieve",
				Value: search.DefaultK,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print the retrieved passages and the prompt",
			},
		},
		Action: askAction,
	}
}

func askAction(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}
	if c.Int("k") < 1 {
		return errors.New("k must be greater than 0")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	var monitor search.Monitor
	if c.Bool("verbose") {
		monitor = &verboseMonitor{out: c.App.ErrWriter}
	}
	answer, doc, err := app.Ask(c.Context, c.String("id"), question, search.Options{
		Provider:    c.String("use"),
		Model:       c.String("model"),
		Temperature: search.Float(c.Float64("temperature")),
		K:           c.Int("k"),
	}, monitor)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, answer.Text)
	fmt.Fprintf(c.App.ErrWriter, "\n[%s via %s in %s]\n", doc.Filename, answer.Provider, elapsed(answer.Duration))
	return nil
}

// verboseMonitor prints each answering step.
type verboseMonitor struct {
	out io.Writer
}

func (m *verboseMonitor) Start(question string) {
	fmt.Fprintf(m.out, "Question: %s\n", question)
}

func (m *verboseMonitor) AfterRetrieval(hits []vectorindex.Hit) {
	fmt.Fprintf(m.out, "Retrieved %d passages\n", len(hits))
	for _, hit := range hits {
		fmt.Fprintf(m.out, "  [%d] score=%.3f %s\n", hit.Position, hit.Score, truncate(hit.Text, 80))
	}
}

func (m *verboseMonitor) BeforeGeneration(provider, model, prompt string) {
	if model == "" {
		model = "default"
	}
	fmt.Fprintf(m.out, "Generating with %s (%s), prompt %d chars\n", provider, model, len(prompt))
}

func (m *verboseMonitor) Finish(answer *search.Answer) {
	fmt.Fprintf(m.out, "Tokens: prompt=%d completion=%d\n\n", answer.Usage.PromptTokens, answer.Usage.CompletionTokens)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List ingested PDFs",
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	docs, err := app.Documents().List(c.Context)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(c.App.ErrWriter, "No documents")
		return nil
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	for _, doc := range docs {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%d pages\t%s\n",
			doc.ID, doc.Filename, doc.PageCount, doc.UploadedAt.Format(time.RFC3339))
	}
	return nil
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Send a prompt to a model, optionally continuing a conversation",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "conversation",
				Aliases: []string{"c"},
				Usage:   "Conversation id to continue",
			},
			&cli.StringFlag{
				Name:  "scenario",
				Usage: "Preset to use (analysis, coding, writing)",
			},
			&cli.StringFlag{
				Name:  "system",
				Usage: "System prompt",
			},
			&cli.StringFlag{
				Name:  "use",
				Usage: "Provider override",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Generation model override",
			},
		},
		Action: chatAction,
	}
}

func chatAction(c *cli.Context) error {
	prompt := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if prompt == "" {
		return errors.New("a prompt is required")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	req := chat.Request{
		Provider:       c.String("use"),
		Model:          c.String("model"),
		SystemPrompt:   c.String("system"),
		UserPrompt:     prompt,
		ConversationID: c.String("conversation"),
	}

	var resp *chat.Response
	if scenario := c.String("scenario"); scenario != "" {
		resp, err = app.Chat().Scenario(c.Context, scenario, req)
	} else {
		resp, err = app.Chat().Chat(c.Context, req)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, resp.Text)
	fmt.Fprintf(c.App.ErrWriter, "\n[conversation %s, %s in %s]\n", resp.ConversationID, resp.Provider, elapsed(resp.Duration))
	return nil
}

func reindexCommand() *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild document indexes with the configured embedding provider",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "id",
				Usage: "Document id to rebuild (repeatable, default all)",
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N documents",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum attempts per document for provider failures",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
		},
		Action: reindexAction,
	}
}

func reindexAction(c *cli.Context) error {
	config := &reindex.Config{
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if err := config.Validate(); err != nil {
		return err
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	reindexer, err := app.NewReindexer(config, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Upload dir: %s\n", app.Config().UploadDir)
	fmt.Fprintf(c.App.ErrWriter, "Embedding provider: %s\n\n", app.Config().EmbeddingProvider)

	summary, err := reindexer.Run(c.Context, c.StringSlice("id")...)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	if len(summary.Failed) > 0 {
		ids := make([]string, 0, len(summary.Failed))
		for id, ferr := range summary.Failed {
			ids = append(ids, id)
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", id, ferr)
		}
		sort.Strings(ids)
		return fmt.Errorf("%d documents failed: %s", len(ids), strings.Join(ids, ", "))
	}
	return nil
}
