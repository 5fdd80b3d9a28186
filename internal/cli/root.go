package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jo-hoe/gogallery/internal/core"
	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	PrettyJSON bool
	Verbose    bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "galleryctl",
		Short:        "Manage the image gallery from the command line",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # List every image, newest first
  galleryctl list

  # Search titles, sizes and upload labels
  galleryctl search sunset

  # Import files through the same validation as the upload dialog
  galleryctl import ~/Pictures/*.jpg
`),
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("CONFIG_PATH", "config.yaml"), "Path to the service config file")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newFavoritesCmd(app))
	cmd.AddCommand(newFavoriteCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newClearCmd(app))

	return cmd
}

// openService loads the config and opens the gallery it points at.
func openService(ctx context.Context, app *App) (*core.CoreService, error) {
	config, err := core.LoadConfig(app.ConfigPath)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if app.Verbose {
		level = config.LogLevel
	}
	core.ConfigureLogging(level)

	return core.NewCoreService(ctx, config)
}

// withService runs fn against an open service and closes it afterwards.
func withService(cmd *cobra.Command, app *App, fn func(svc *core.CoreService) error) error {
	svc, err := openService(cmd.Context(), app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer func() { _ = svc.Close() }()

	if err := fn(svc); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
