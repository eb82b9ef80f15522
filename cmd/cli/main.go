package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/config"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
)

// dump is the export file format.
type dump struct {
	Links     []domain.Link           `json:"links"`
	Usernames []domain.UsernameRecord `json:"usernames"`
}

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(os.Args) < 2 {
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}

	cfg := config.Load()
	repo, err := sqlstore.New(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()
	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		err = doExport(ctx, repo)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		err = doImport(ctx, repo, *importFile)
	default:
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}
	if err != nil {
		slog.Error(os.Args[1]+" failed", "error", err)
		os.Exit(1)
	}
}

func doExport(ctx context.Context, repo *sqlstore.Repository) error {
	links, err := repo.DumpLinks(ctx)
	if err != nil {
		return fmt.Errorf("dump links: %w", err)
	}
	usernames, err := repo.DumpUsernames(ctx)
	if err != nil {
		return fmt.Errorf("dump usernames: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(dump{Links: links, Usernames: usernames})
}

func doImport(ctx context.Context, repo *sqlstore.Repository, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	var in dump
	if err := json.NewDecoder(file).Decode(&in); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	imported := 0
	for i := range in.Links {
		l := &in.Links[i]
		existing, err := repo.GetLink(ctx, l.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			slog.Info("Skipping existing link", "id", l.ID)
			continue
		}
		if err := repo.CreateLink(ctx, l); err != nil {
			slog.Warn("Failed to import link", "id", l.ID, "error", err)
			continue
		}
		imported++
	}

	claimed := 0
	for _, u := range in.Usernames {
		if err := repo.RegisterPrincipal(ctx, u.PrincipalID); err != nil {
			return err
		}
		if err := repo.UpsertUsername(ctx, u); err != nil {
			slog.Warn("Failed to import username", "username", u.Username, "error", err)
			continue
		}
		claimed++
	}

	slog.Info("Import finished", "links", imported, "usernames", claimed)
	return nil
}
