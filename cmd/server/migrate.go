package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/config"
	dbstore "github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/db"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
)

// seedSession publishes templates loaded from disk.
var seedSession = models.Session{UserID: "system", Role: models.RoleAdmin}

func newMigrateCommand(configPath *string) *cobra.Command {
	var templatesDir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed templates",
		Long: `Applies pending SQL migrations to the configured SQLite database.
With --templates, every *.json, *.yaml and *.yml template in the directory
is published; versions already present are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if templatesDir != "" {
				cfg.TemplatesDir = templatesDir
			}
			return runMigrate(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&templatesDir, "templates", "", "directory of template files to publish")
	return cmd
}

func openSQLite(cfg config.Config) (*dbstore.SQLiteStore, error) {
	conn, err := dbstore.Open(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	applied, err := dbstore.RunMigrations(conn, cfg.MigrationsDir)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	for _, name := range applied {
		log.Printf("migration applied: %s", name)
	}
	st, err := dbstore.NewSQLiteStore(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}
	return st, nil
}

func runMigrate(ctx context.Context, cfg config.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openSQLite(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Printf("warning: failed to close sqlite db: %v", cerr)
		}
	}()
	fmt.Fprintf(out, "database ready: %s\n", cfg.SQLitePath)
	if cfg.TemplatesDir == "" {
		return nil
	}
	ts := services.NewTemplateService(st, nil, services.NewAuditor(st))
	n, err := seedTemplates(ctx, ts, cfg.TemplatesDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "published %d template(s) from %s\n", n, cfg.TemplatesDir)
	return nil
}

func templateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// seedTemplates publishes each template file in dir. Versions that are
// already published are skipped; any other failure stops seeding.
func seedTemplates(ctx context.Context, ts *services.TemplateService, dir string) (int, error) {
	files, err := templateFiles(dir)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return published, err
		}
		t, err := ts.Publish(ctx, seedSession, raw, services.DetectFormat(path, raw))
		if err != nil {
			if se, ok := services.AsServiceError(err); ok && se.Code == services.ErrorConflict {
				continue
			}
			return published, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		log.Printf("template published: %s %s@%s (%s)", t.ID, t.TemplateCode, t.Version, t.Key())
		published++
	}
	return published, nil
}
