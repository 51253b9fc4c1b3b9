// Command crudgrid lists, edits and serves a grid screen from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/goliatone/go-crudgrid/pkg/tui"
)

const (
	envPrefix      = "CRUDGRID_"
	defaultEnvFile = ".env"
)

// settings holds the persistent flags shared by every subcommand.
type settings struct {
	configDir string
	screen    string
	openapi   string
	component string
	dataFile  string
	envFile   string
	noColor   bool
	verbose   bool
}

type app struct {
	stdout   io.Writer
	stderr   io.Writer
	driver   tui.PromptDriver
	settings settings
	logger   *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "crudgrid",
		Short: "Browse and edit records through a schema-driven grid",
		Long: `crudgrid renders a grid screen described by a screen document or an
OpenAPI component and edits the records behind it.

Examples:

  crudgrid --config ./screens --screen employees --data people.json list --search ada
  crudgrid --openapi api.yaml --component Policy --data policies.yaml edit 42
  crudgrid --config ./screens --data people.json serve --addr :8080
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadEnv(cmd.Flags()); err != nil {
				return err
			}
			if err := applyEnv(cmd.Flags()); err != nil {
				return err
			}
			a.logger = newLogger(a.stderr, a.settings.verbose)
			if a.settings.noColor {
				color.NoColor = true
			}
			return nil
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.settings.configDir, "config", "", "directory of screen documents (JSON, YAML or TOML)")
	flags.StringVar(&a.settings.screen, "screen", "", "screen id inside --config")
	flags.StringVar(&a.settings.openapi, "openapi", "", "OpenAPI document path or URL")
	flags.StringVar(&a.settings.component, "component", "", "component schema inside --openapi")
	flags.StringVar(&a.settings.dataFile, "data", "", "records and lookup collections (JSON or YAML)")
	flags.StringVar(&a.settings.envFile, "env-file", defaultEnvFile, "dotenv file read before flags fall back to CRUDGRID_* variables")
	flags.BoolVar(&a.settings.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&a.settings.verbose, "verbose", "v", false, "log debug messages to stderr")

	root.AddCommand(a.newListCmd(), a.newEditCmd(), a.newServeCmd())
	return root
}

// loadEnv reads the dotenv file. A missing default file is not an error.
func (a *app) loadEnv(flags *pflag.FlagSet) error {
	path := strings.TrimSpace(a.settings.envFile)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !flags.Changed("env-file") {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// applyEnv fills every flag left unset on the command line from its
// CRUDGRID_<NAME> variable.
func applyEnv(flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "help" {
			return
		}
		key := envKey(f.Name)
		value, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if err := flags.Set(f.Name, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	})
	return errors.Join(errs...)
}

func envKey(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (a *app) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if a.settings.noColor {
		c.DisableColor()
	}
	return c.Sprint(s)
}
