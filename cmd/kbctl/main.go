// Command kbctl administers the knowledge base: schema management, sample
// data and machine translation runs outside the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"supportkb/internal/app"
	"supportkb/internal/config"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
	"supportkb/internal/seed"
	"supportkb/internal/service/llm"
)

// CLI defines the command-line interface for kbctl.
var CLI struct {
	Schema    SchemaCmd    `cmd:"" help:"Create missing tables and indexes"`
	Drop      DropCmd      `cmd:"" help:"Drop every table (refused in prod)"`
	Seed      SeedCmd      `cmd:"" help:"Create sample origin documents"`
	Translate TranslateCmd `cmd:"" help:"Machine-translate an origin document"`
	Outdated  OutdatedCmd  `cmd:"" help:"Show the translation status of an origin document"`
}

// runtime is shared by every command
type runtime struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
}

// open connects to storage and ensures the schema exists
func (rt *runtime) open() (*app.Storage, error) {
	storage, err := app.OpenStorage(rt.ctx, rt.cfg, rt.logger)
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureSchema(rt.ctx, rt.logger); err != nil {
		storage.Close()
		return nil, err
	}
	return storage, nil
}

// services builds the domain services on storage
func (rt *runtime) services(storage *app.Storage) (*app.Services, error) {
	rules, err := locales.Load()
	if err != nil {
		return nil, err
	}
	translation, err := llm.SetupTranslation(rt.cfg, rt.logger)
	if err != nil {
		return nil, err
	}
	return app.NewServices(storage, translation, rules, rt.cfg, rt.logger), nil
}

// SchemaCmd creates missing tables.
type SchemaCmd struct{}

func (c *SchemaCmd) Run(rt *runtime) error {
	storage, err := rt.open()
	if err != nil {
		return err
	}
	defer storage.Close()
	fmt.Printf("schema ready (prefix %q)\n", rt.cfg.TablePrefix)
	return nil
}

// DropCmd drops every table.
type DropCmd struct {
	Yes bool `help:"Confirm dropping every table"`
}

func (c *DropCmd) Run(rt *runtime) error {
	if rt.cfg.Environment == "prod" {
		return errors.New("refusing to drop tables in the prod environment")
	}
	if !c.Yes {
		return errors.New("pass --yes to drop every table")
	}

	storage, err := app.OpenStorage(rt.ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	if err := storage.DropSchema(rt.ctx, rt.logger); err != nil {
		return err
	}
	fmt.Printf("tables dropped (prefix %q)\n", rt.cfg.TablePrefix)
	return nil
}

// SeedCmd creates sample origin documents.
type SeedCmd struct {
	Author   string `default:"seed-author" help:"Creator recorded on seeded revisions"`
	Reviewer string `default:"seed-reviewer" help:"Reviewer recorded on seeded approvals"`
}

func (c *SeedCmd) Run(rt *runtime) error {
	storage, err := rt.open()
	if err != nil {
		return err
	}
	defer storage.Close()

	services, err := rt.services(storage)
	if err != nil {
		return err
	}

	result, err := seed.NewSeeder(services.Graph, services.Rules, rt.logger).
		Seed(rt.ctx, seed.SampleDocuments(), c.Author, c.Reviewer)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d documents (%d already present)\n", result.Created, result.Skipped)
	return nil
}

// TranslateCmd machine-translates one origin document.
type TranslateCmd struct {
	Document int64  `required:"" help:"Origin document id"`
	Locale   string `xor:"target" required:"" help:"Target locale"`
	All      bool   `xor:"target" required:"" help:"Every machine-translated locale that is missing or outdated"`
	Creator  string `help:"Creator recorded on the new revisions (defaults to the machine translator)"`
}

func (c *TranslateCmd) Run(rt *runtime) error {
	storage, err := rt.open()
	if err != nil {
		return err
	}
	defer storage.Close()

	services, err := rt.services(storage)
	if err != nil {
		return err
	}

	if c.All {
		result, err := services.Translator.TranslateAll(rt.ctx, c.Document, c.Creator)
		if err != nil {
			return err
		}
		return printJSON(result)
	}

	result, err := services.Translator.TranslateDocument(rt.ctx, &wikiSvc.TranslateDocumentRequest{
		DocumentID:   c.Document,
		TargetLocale: c.Locale,
		CreatorID:    c.Creator,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

// OutdatedCmd prints the translation status of an origin document.
type OutdatedCmd struct {
	Document int64 `required:"" help:"Origin document id"`
}

func (c *OutdatedCmd) Run(rt *runtime) error {
	storage, err := rt.open()
	if err != nil {
		return err
	}
	defer storage.Close()

	services, err := rt.services(storage)
	if err != nil {
		return err
	}

	doc, err := services.Graph.GetDocument(rt.ctx, c.Document)
	if err != nil {
		return err
	}
	statuses, err := services.State.TranslationStatus(rt.ctx, doc)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%d)\n", doc.Title, doc.ID)
	for _, s := range statuses {
		id := "-"
		if s.DocumentID != nil {
			id = fmt.Sprint(*s.DocumentID)
		}
		fmt.Printf("  %-8s %-18s %s\n", s.Locale, s.State, id)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var logger *slog.Logger
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, "kbctl", cfg.LogMaxFiles)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to set up log file: %v\n", err)
			os.Exit(1)
		}
		defer logFile.Close()
		logger = config.NewLogger(cfg.Debug, logFile)
	} else {
		logger = config.NewLogger(cfg.Debug, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx := kong.Parse(&CLI,
		kong.Name("kbctl"),
		kong.Description("Knowledge base administration"),
		kong.UsageOnError(),
	)
	err := kctx.Run(&runtime{ctx: ctx, cfg: cfg, logger: logger})
	kctx.FatalIfErrorf(err)
}
