// Package app wires a workspace into a ready wizard controller.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"twaforge/internal/analyzer"
	"twaforge/internal/config"
	"twaforge/internal/db"
	"twaforge/internal/domain"
	"twaforge/internal/events"
	"twaforge/internal/generator"
	"twaforge/internal/history"
	"twaforge/internal/llm"
	"twaforge/internal/metrics"
	"twaforge/internal/migrate"
	"twaforge/internal/repo"
	"twaforge/internal/session"
	"twaforge/internal/wizard"
)

// EnvFile is the dotenv file read from the workspace root.
const EnvFile = ".env"

// Options control Open.
type Options struct {
	Workspace string
	Logger    *slog.Logger
	// APIKey overrides every other credential source when set.
	APIKey func() string
	// Model replaces the Gemini transport, mainly in tests.
	Model llm.Model
}

// App holds everything a command or the server needs for one workspace.
type App struct {
	Workspace  string
	Config     *config.Config
	DB         *sql.DB
	Repo       repo.Repo
	History    *history.Cache
	Metrics    *metrics.Metrics
	Controller *wizard.Controller
	Sessions   *session.Store
	Credential llm.CredentialSource
	Logger     *slog.Logger
}

// Open loads twa.yml (or its defaults), migrates the workspace database and
// loads the build history.
func Open(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ws := opts.Workspace
	if ws == "" {
		ws = "."
	}
	cfg, err := config.LoadOptional(ws)
	if err != nil {
		return nil, err
	}
	if _, err := db.EnsureWorkspace(ws); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: ws})
	if err != nil {
		return nil, err
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r := repo.Repo{DB: conn}
	m := metrics.New()
	hist := history.New(r, logger)
	entries, err := hist.Load(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	m.SetHistorySize(len(entries))

	cred := CredentialSource(ws, opts.APIKey)
	model := opts.Model
	if model == nil {
		model = llm.NewClient(cred,
			llm.WithBaseURL(cfg.Model.BaseURL),
			llm.WithTimeout(cfg.Timeout()),
			llm.WithMetrics(m),
			llm.WithLogger(logger),
		)
	}
	ctl := &wizard.Controller{
		Analyzer:  analyzer.New(model, cfg.Model.Analyze),
		Generator: generator.New(model, cfg.Model.Generate),
		History:   hist,
		Events:    events.Writer{DB: conn},
		Metrics:   m,
		Logger:    logger,
		Defaults:  cfg.AppDefaults(),
		HasCredential: func() bool {
			return cred() != ""
		},
	}
	logger.Debug("workspace opened", "workspace", ws, "db", db.Path(ws), "history", len(entries))
	return &App{
		Workspace:  ws,
		Config:     cfg,
		DB:         conn,
		Repo:       r,
		History:    hist,
		Metrics:    m,
		Controller: ctl,
		Sessions:   session.NewStore(r),
		Credential: cred,
		Logger:     logger,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// CredentialSource resolves the model-service key on every call: the
// override first, then the process environment, then the workspace .env so a
// key added while the wizard is open is picked up on resume.
func CredentialSource(workspace string, override func() string) llm.CredentialSource {
	envPath := filepath.Join(workspace, EnvFile)
	return func() string {
		if override != nil {
			if v := strings.TrimSpace(override()); v != "" {
				return v
			}
		}
		for _, k := range domain.CredentialEnvVars {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v
			}
		}
		vals, err := godotenv.Read(envPath)
		if err != nil {
			return ""
		}
		for _, k := range domain.CredentialEnvVars {
			if v := strings.TrimSpace(vals[k]); v != "" {
				return v
			}
		}
		return ""
	}
}

// SetEnvValue writes key=value into the workspace .env, keeping other keys.
func SetEnvValue(workspace, key, value string) error {
	path := filepath.Join(workspace, EnvFile)
	vals, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		vals = map[string]string{}
	}
	vals[key] = value
	if err := godotenv.Write(vals, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}
