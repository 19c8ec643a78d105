package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"twaforge/internal/app"
	"twaforge/internal/db"
)

var rootCmd = &cobra.Command{
	Use:   "twa",
	Short: "TWAForge CLI",
	Long: `TWAForge turns a Progressive Web App URL into the configuration files of an
Android Trusted Web Activity project.
- Wizard: welcome -> url -> app details -> compliance -> build -> export.
- Analyze: a model reads the PWA manifest and suggests name, colors and icons.
- Build: a model writes AndroidManifest.xml, the Gradle config and assetlinks.json.
- History: the last 10 builds are kept in the workspace database.
- Credential: TWA_API_KEY, API_KEY or GEMINI_API_KEY (environment or .env).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TWA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	// Existing environment wins over .env.
	_ = godotenv.Load(filepath.Join(viper.GetString("workspace"), app.EnvFile))
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("api-key", "", "model service API key (overrides TWA_API_KEY, API_KEY, GEMINI_API_KEY)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("api-key", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(wizardCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
}

// --- helpers ---

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Logger:    newLogger(viper.GetString("log-level")),
		APIKey:    func() string { return viper.GetString("api-key") },
	})
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// printJSONOrTable prints v as JSON under --json, otherwise the table render
// draws.
func printJSONOrTable(v any, render func(io.Writer)) error {
	return writeJSONOrTable(os.Stdout, viper.GetBool("json"), v, render)
}

func writeJSONOrTable(w io.Writer, asJSON bool, v any, render func(io.Writer)) error {
	if asJSON {
		return writeJSON(w, v)
	}
	render(w)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
