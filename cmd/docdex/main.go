// Command docdex indexes documents into a local semantic search index.
//
// Usage:
//
//	docdex index ./docs
//	docdex index ./docs --provider ollama --mode hybrid
//	docdex search "quarterly revenue" --limit 5
//	docdex stats
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/brunobiangulo/docdex"
)

// CLI defines the command-line interface.
type CLI struct {
	Index  IndexCmd  `cmd:"" help:"Index documents from a file or directory."`
	Search SearchCmd `cmd:"" help:"Search indexed documents."`
	Stats  StatsCmd  `cmd:"" help:"Show index statistics."`
	Clear  ClearCmd  `cmd:"" help:"Remove all indexed documents."`

	PersistDir string `name:"persist-dir" help:"Storage directory (default: ~/.docdex)." type:"path"`
	LogLevel   string `name:"log-level" help:"Log level (debug, info, warn, error)." default:"info"`
}

// config builds the indexer configuration from environment plus
// command-line overrides.
func (c *CLI) config() docdex.Config {
	cfg := docdex.FromEnv()
	if c.PersistDir != "" {
		cfg.PersistDir = c.PersistDir
	}
	return cfg
}

// IndexCmd indexes a file or directory tree.
type IndexCmd struct {
	Path string `arg:"" help:"File or directory to index." type:"path"`

	Provider string `help:"LLM provider for enhancement (none, ollama, openai)."`
	Mode     string `help:"Enhancement mode (text_only, hybrid, llm_only)."`
	Model    string `help:"LLM model name."`
	NoImages bool   `name:"no-images" help:"Skip page image extraction."`
}

func (c *IndexCmd) Run(cli *CLI) error {
	cfg := cli.config()
	if c.Provider != "" {
		cfg.Parsing.Provider = strings.ToLower(c.Provider)
	}
	if c.Mode != "" {
		cfg.Parsing.Mode = strings.ToLower(c.Mode)
	}
	if c.Model != "" {
		cfg.Parsing.Model = c.Model
	}
	if c.NoImages {
		cfg.Parsing.ExtractImages = false
	}

	ix, err := docdex.New(cfg)
	if err != nil {
		return err
	}
	defer ix.Close()

	ctx, cancel := signalContext()
	defer cancel()

	info, err := os.Stat(c.Path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		result, err := ix.IndexFile(ctx, c.Path)
		if err != nil {
			return err
		}
		if result.Skipped {
			fmt.Printf("Unchanged: %s\n", result.Path)
		} else {
			fmt.Printf("Indexed: %s (%s)\n", result.Path, result.DocID)
		}
		return nil
	}

	summary, err := ix.IndexDirectory(ctx, c.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d documents (%d unchanged, %d failed)\n",
		summary.Indexed, summary.Skipped, summary.Failed)
	for _, e := range summary.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", e)
	}
	return nil
}

// SearchCmd queries the index.
type SearchCmd struct {
	Query string `arg:"" help:"Search query."`
	Limit int    `help:"Maximum number of results." default:"5"`
}

func (c *SearchCmd) Run(cli *CLI) error {
	ix, err := docdex.New(cli.config())
	if err != nil {
		return err
	}
	defer ix.Close()

	ctx, cancel := signalContext()
	defer cancel()

	results, err := ix.Search(ctx, c.Query, c.Limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. %s (similarity %.3f)\n", i+1, r.Metadata["filename"], r.Similarity)
		fmt.Printf("   %s\n", snippet(r.Content, 200))
	}
	return nil
}

// StatsCmd prints index statistics.
type StatsCmd struct{}

func (c *StatsCmd) Run(cli *CLI) error {
	ix, err := docdex.New(cli.config())
	if err != nil {
		return err
	}
	defer ix.Close()

	stats, err := ix.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Documents: %d\n", stats.Documents)
	fmt.Printf("Cataloged: %d\n", stats.Cataloged)
	fmt.Printf("Storage:   %s\n", stats.PersistDir)
	fmt.Printf("Formats:   %s\n", strings.Join(ix.Supported(), ", "))
	return nil
}

// ClearCmd wipes the index.
type ClearCmd struct {
	Yes bool `help:"Skip confirmation."`
}

func (c *ClearCmd) Run(cli *CLI) error {
	if !c.Yes {
		fmt.Print("Remove all indexed documents? [y/N] ")
		var answer string
		fmt.Scanln(&answer)
		if !strings.EqualFold(answer, "y") {
			return nil
		}
	}

	ix, err := docdex.New(cli.config())
	if err != nil {
		return err
	}
	defer ix.Close()

	if err := ix.Clear(context.Background()); err != nil {
		return err
	}
	fmt.Println("Index cleared.")
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// snippet truncates s to at most n runes, collapsing newlines.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("docdex"),
		kong.Description("Local document indexing and semantic search"),
		kong.UsageOnError(),
	)

	setupLogging(cli.LogLevel)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
