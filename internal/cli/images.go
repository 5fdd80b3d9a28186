package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jo-hoe/gogallery/internal/core"
	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/jo-hoe/gogallery/internal/upload"
	"github.com/maruel/natural"
	"github.com/spf13/cobra"
)

func newListCmd(app *App) *cobra.Command {
	var nav string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, app, func(svc *core.CoreService) error {
				view := svc.Images(gallery.ParseNav(nav), "")
				return writeOut(cmd, app, map[string]any{"data": nonNil(view.Images)})
			})
		},
	}

	cmd.Flags().StringVar(&nav, "nav", string(gallery.NavHome), "Navigation filter (home|favorites)")
	return cmd
}

func newSearchCmd(app *App) *cobra.Command {
	var nav string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles, sizes and upload labels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withService(cmd, app, func(svc *core.CoreService) error {
				view := svc.Images(gallery.ParseNav(nav), query)
				return writeOut(cmd, app, map[string]any{
					"data": nonNil(view.Images),
					"meta": map[string]any{"query": query, "count": len(view.Images)},
				})
			})
		},
	}

	cmd.Flags().StringVar(&nav, "nav", string(gallery.NavHome), "Navigation filter (home|favorites)")
	return cmd
}

func newFavoritesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List favorite images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, app, func(svc *core.CoreService) error {
				return writeOut(cmd, app, map[string]any{"data": nonNil(svc.Store().GetFavorites())})
			})
		},
	}
}

func newFavoriteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <image-id>",
		Short: "Toggle the favorite flag of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withService(cmd, app, func(svc *core.CoreService) error {
				if _, ok := svc.GetImageByID(id); !ok {
					return errNotFound("image", id)
				}
				if err := svc.ToggleFavorite(cmd.Context(), id); err != nil {
					return err
				}
				record, _ := svc.GetImageByID(id)
				return writeOut(cmd, app, map[string]any{"data": record})
			})
		},
	}
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <image-id>",
		Aliases: []string{"rm"},
		Short:   "Remove an image",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withService(cmd, app, func(svc *core.CoreService) error {
				if _, ok := svc.GetImageByID(id); !ok {
					return errNotFound("image", id)
				}
				if err := svc.DeleteImage(cmd.Context(), id); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"removed": id}})
			})
		},
	}
}

func newImportCmd(app *App) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import [file]...",
		Short: "Import image files into the gallery",
		Long: "Import image files into the gallery. Files are committed in the order given, " +
			"so the last one ends up first. With --dir every file of a directory is imported in natural name order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if dir != "" {
				listed, err := listDir(dir)
				if err != nil {
					return writeErr(cmd, err)
				}
				paths = append(paths, listed...)
			}
			if len(paths) == 0 {
				return writeErr(cmd, errors.New(upload.NoticeNothingStaged))
			}

			files := make([]upload.File, 0, len(paths))
			for _, path := range paths {
				f, err := upload.FromPath(path)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("failed to open %s: %w", path, err))
				}
				files = append(files, f)
			}

			return withService(cmd, app, func(svc *core.CoreService) error {
				result, err := svc.ImportFiles(cmd.Context(), files)
				if errors.Is(err, upload.ErrNoImages) {
					return errors.New(upload.NoticeImagesOnly)
				}
				if err != nil {
					return err
				}
				if notice := result.Selection.Notice(); notice != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), notice)
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{
					"committed":    result.Committed(),
					"rejectedType": result.Selection.RejectedType,
					"rejectedSize": result.Selection.RejectedSize,
				}})
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Import every regular file in this directory")
	return cmd
}

// listDir returns the regular files of dir so that "img2" sorts before "img10".
func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return natural.Less(names[i], names[j])
	})

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

func newClearCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return writeErr(cmd, errors.New("refusing to clear the gallery without --yes"))
			}
			return withService(cmd, app, func(svc *core.CoreService) error {
				removed := svc.Store().Len()
				if err := svc.Store().Clear(cmd.Context()); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"removed": removed}})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm removing every image")
	return cmd
}

func nonNil(images []gallery.ImageRecord) []gallery.ImageRecord {
	if images == nil {
		return []gallery.ImageRecord{}
	}
	return images
}
