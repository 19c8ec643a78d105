package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"twaforge/internal/app"
	"twaforge/internal/config"
	"twaforge/internal/domain"
	"twaforge/internal/repo"
	"twaforge/internal/server"
	"twaforge/internal/view"
	"twaforge/internal/wizard"
)

// outcome turns a notice or guidance left on the state into an error.
func outcome(s wizard.State) error {
	if s.Guidance {
		return fmt.Errorf("%w: set one of %s", domain.ErrMissingCredential, strings.Join(domain.CredentialEnvVars, ", "))
	}
	if s.Notice != nil {
		return errors.New(s.Notice.Message)
	}
	return nil
}

// analyzeURL walks a fresh wizard up to the app details form.
func analyzeURL(ctx context.Context, ctl *wizard.Controller, url string) (wizard.State, error) {
	s, err := ctl.Start(ctx, "", ctl.New())
	if err != nil {
		return s, err
	}
	if s, err = ctl.SetURL(ctx, "", s, url); err != nil {
		return s, err
	}
	if s, err = ctl.SubmitURL(ctx, "", s); err != nil {
		return s, err
	}
	if err := outcome(s); err != nil {
		return s, err
	}
	return s, nil
}

// buildURL runs the whole wizard without prompts.
func buildURL(ctx context.Context, ctl *wizard.Controller, url string, patch wizard.ConfigPatch) (wizard.State, error) {
	s, err := analyzeURL(ctx, ctl, url)
	if err != nil {
		return s, err
	}
	if s, err = ctl.UpdateConfig(ctx, "", s, patch); err != nil {
		return s, err
	}
	if s, err = ctl.Next(ctx, "", s); err != nil {
		return s, err
	}
	if s, err = ctl.Build(ctx, "", s); err != nil {
		return s, err
	}
	if err := outcome(s); err != nil {
		return s, err
	}
	return s, nil
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a PWA and print its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := analyzeURL(ctx, a.Controller, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"metadata": s.Metadata, "config": s.Config}, func(w io.Writer) {
					renderMetadata(w, *s.Metadata)
				})
			})
		},
	}
}

func buildCmd() *cobra.Command {
	var url, out string
	var appName, packageName, versionName, orientation, iconURL, splashColor string
	var versionCode, minSdk int
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Analyze a PWA and generate its Android project in one go",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch wizard.ConfigPatch
			flags := cmd.Flags()
			if flags.Changed("app-name") {
				patch.AppName = &appName
			}
			if flags.Changed("package-name") {
				patch.PackageName = &packageName
			}
			if flags.Changed("version-name") {
				patch.VersionName = &versionName
			}
			if flags.Changed("version-code") {
				patch.VersionCode = &versionCode
			}
			if flags.Changed("min-sdk") {
				patch.MinSdk = &minSdk
			}
			if flags.Changed("icon-url") {
				patch.IconURL = &iconURL
			}
			if flags.Changed("splash-color") {
				patch.SplashColor = &splashColor
			}
			if flags.Changed("orientation") {
				o, err := domain.ParseOrientation(orientation)
				if err != nil {
					return err
				}
				patch.Orientation = &o
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := buildURL(ctx, a.Controller, url, patch)
				if err != nil {
					return err
				}
				if out != "" {
					paths, err := saveArtifacts(out, *s.Result)
					if err != nil {
						return err
					}
					for _, p := range paths {
						fmt.Fprintln(os.Stderr, "wrote", p)
					}
				}
				return printJSONOrTable(s.Result, func(w io.Writer) {
					renderView(w, view.Render(s, nil))
				})
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "PWA URL")
	cmd.Flags().StringVar(&out, "out", "", "directory to write the generated files into")
	cmd.Flags().StringVar(&appName, "app-name", "", "app name")
	cmd.Flags().StringVar(&packageName, "package-name", "", "Android package name")
	cmd.Flags().StringVar(&versionName, "version-name", "", "version name")
	cmd.Flags().IntVar(&versionCode, "version-code", 0, "version code")
	cmd.Flags().StringVar(&orientation, "orientation", "", "portrait, landscape or any")
	cmd.Flags().IntVar(&minSdk, "min-sdk", 0, "minimum Android SDK")
	cmd.Flags().StringVar(&iconURL, "icon-url", "", "icon URL")
	cmd.Flags().StringVar(&splashColor, "splash-color", "", "splash background color")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func historyCmd() *cobra.Command {
	h := &cobra.Command{Use: "history", Short: "Inspect past builds"}
	h.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent builds, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items := a.History.List()
				return printJSONOrTable(items, func(w io.Writer) {
					renderHistory(w, items)
				})
			})
		},
	})
	var out string
	show := &cobra.Command{
		Use:   "show <n>",
		Short: "Show the files of build n (1 is the newest)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("n must be a number: %w", err)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items := a.History.List()
				if n < 1 || n > len(items) {
					return fmt.Errorf("no build #%d (have %d)", n, len(items))
				}
				res := items[n-1]
				if out != "" {
					_, err := saveArtifacts(out, res)
					return err
				}
				return printJSONOrTable(res, func(w io.Writer) {
					renderArtifacts(w, res)
				})
			})
		},
	}
	show.Flags().StringVar(&out, "out", "", "write the files into this directory instead")
	h.AddCommand(show)
	h.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget all past builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Controller.ClearHistory(ctx)
			})
		},
	})
	return h
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Repo.LatestEvents(ctx, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(items, func(w io.Writer) {
					renderEvents(w, items)
				})
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.SessionID, "session", "", "session id filter")
	return cmd
}

func configCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "twa.yml names the models, the per-call timeout, the defaults of the app details form and the server address. Without the file the built-in defaults apply.",
	}
	c.AddCommand(configShowCmd())
	c.AddCommand(configInitCmd())
	c.AddCommand(configSetKeyCmd())
	return c
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				keySet := a.Credential() != ""
				return printJSONOrTable(map[string]any{"config": a.Config, "api_key_set": keySet}, func(w io.Writer) {
					renderConfig(w, a.Config, keySet)
				})
			})
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default twa.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <api-key>",
		Short: "Store the model service API key in the workspace .env",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return errors.New("api key must not be empty")
			}
			ws := viper.GetString("workspace")
			if err := app.SetEnvValue(ws, domain.CredentialEnvVars[0], key); err != nil {
				return err
			}
			fmt.Printf("stored %s in %s\n", domain.CredentialEnvVars[0], app.EnvFile)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var sessionTTL time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the wizard API. With TWA_JWT_SECRET set, the API and /metrics require a bearer token (see twa token mint); /docs, health and openapi.json stay open.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if !cmd.Flags().Changed("addr") && a.Config.Server.Addr != "" {
					addr = a.Config.Server.Addr
				}
				if !cmd.Flags().Changed("base-path") && a.Config.Server.BasePath != "" {
					basePath = a.Config.Server.BasePath
				}
				authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt-secret"), Logger: a.Logger}
				if authCfg.JWTSecret == "" {
					a.Logger.Warn("TWA_JWT_SECRET not set; API is open")
				}
				handler, err := server.New(server.Config{
					Controller: a.Controller,
					Sessions:   a.Sessions,
					Repo:       a.Repo,
					Metrics:    a.Metrics,
					BasePath:   basePath,
					Auth:       authCfg,
					Logger:     a.Logger,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(sctx)
				}()
				if sessionTTL > 0 {
					go pruneSessions(ctx, a, sessionTTL)
				}
				fmt.Printf("Serving TWAForge API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", 24*time.Hour, "drop sessions idle for longer (0 keeps them)")
	cmd.Flags().String("jwt-secret", "", "HS256 secret for bearer auth (TWA_JWT_SECRET)")
	_ = viper.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	return cmd
}

func pruneSessions(ctx context.Context, a *app.App, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.Sessions.Prune(ctx, ttl)
			if err != nil {
				a.Logger.Warn("prune sessions", "error", err)
				continue
			}
			if n > 0 {
				a.Logger.Info("pruned idle sessions", "count", n)
			}
		}
	}
}

func tokenCmd() *cobra.Command {
	t := &cobra.Command{Use: "token", Short: "API bearer tokens"}
	var subject string
	var ttl time.Duration
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint a bearer token signed with TWA_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				return errors.New("TWA_JWT_SECRET is required to mint tokens")
			}
			token, err := server.SignToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			return printJSONOrTable(map[string]string{"token": token, "subject": subject}, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}
	mint.Flags().StringVar(&subject, "subject", "dev", "token subject")
	mint.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 never expires)")
	t.AddCommand(mint)
	return t
}
