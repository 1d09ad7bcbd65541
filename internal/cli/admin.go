package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"blogicum/internal/admin"
)

func (e *env) adminRun(fn func(cmd *cobra.Command, svc *admin.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return e.withStore(cmd.Context(), func(st Store) error {
			return fn(cmd, admin.NewService(st), args)
		})
	}
}

func (e *env) categoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage post categories",
		Long: `Manage post categories.

Subcommands:
  create     - Add a category
  list       - Show all categories
  publish    - Show a category and its posts
  unpublish  - Hide a category and its posts
  delete     - Remove a category; its posts stay without one`,
	}

	var in admin.CategoryInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a category",
		Long: `Add a category.

Examples:
  blogicum category create --title Travel --description "Trips" --slug travel --published`,
		Args: cobra.NoArgs,
		RunE: e.adminRun(func(cmd *cobra.Command, svc *admin.Service, _ []string) error {
			c, err := svc.CreateCategory(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created category %d (%s)\n", c.ID, c.Slug)
			return nil
		}),
	}
	create.Flags().StringVar(&in.Title, "title", "", "Category title")
	create.Flags().StringVar(&in.Description, "description", "", "Category description")
	create.Flags().StringVar(&in.Slug, "slug", "", "URL identifier (letters, digits, '-' and '_')")
	create.Flags().BoolVar(&in.Published, "published", true, "Publish immediately")

	list := &cobra.Command{
		Use:   "list",
		Short: "Show all categories",
		Args:  cobra.NoArgs,
		RunE: e.adminRun(func(cmd *cobra.Command, svc *admin.Service, _ []string) error {
			cats, err := svc.Categories(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tTITLE\tPUBLISHED")
			for _, c := range cats {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", c.ID, c.Slug, c.Title, c.IsPublished)
			}
			return tw.Flush()
		}),
	}

	setPublished := func(use, short string, published bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <slug>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: e.adminRun(func(cmd *cobra.Command, svc *admin.Service, args []string) error {
				if err := svc.PublishCategory(cmd.Context(), args[0], published); err != nil {
					return err
				}
				return done(cmd.OutOrStdout(), use, "category", args[0])
			}),
		}
	}

	del := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Remove a category",
		Args:  cobra.ExactArgs(1),
		RunE: e.adminRun(func(cmd *cobra.Command, svc *admin.Service, args []string) error {
			if err := svc.DeleteCategory(cmd.Context(), args[0]); err != nil {
				return err
			}
			return done(cmd.OutOrStdout(), "delete", "category", args[0])
		}),
	}

	cmd.AddCommand(
		create,
		list,
		setPublished("publish", "Show a category and its posts", true),
		setPublished("unpublish", "Hide a category and its posts", false),
		del,
	)
	return cmd
}

func (e *env) locationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Manage post locations",
	}

	var in admin.LocationInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a location",
		Args:  cobra.NoArgs,
		RunE: e.adminRun(func(cmd *cobra.Command, svc *admin.Service, _ []string) error {
			l, err := svc.CreateLocation(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created location %d (%s)\n", l.ID, l.Name)
			return nil
		}),
	}
	create.Flags().StringVar(&in.Name, "name", "", "Place name")
	create.Flags().BoolVar(&in.Published, "published", true, "Publish immediately")

	list := &cobra.Command{
		Use:   "list",
		Short: "Show all locations",
		Args:  cobra.NoArgs,
		RunE: e.adminRun(func(cmd *cobra.Command, svc *admin.Service, _ []string) error {
			locs, err := svc.Locations(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPUBLISHED")
			for _, l := range locs {
				fmt.Fprintf(tw, "%d\t%s\t%t\n", l.ID, l.Name, l.IsPublished)
			}
			return tw.Flush()
		}),
	}

	byID := func(use, short string, fn func(cmd *cobra.Command, svc *admin.Service, id int64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: e.adminRun(func(cmd *cobra.Command, svc *admin.Service, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid location id %q", args[0])
				}
				if err := fn(cmd, svc, id); err != nil {
					return err
				}
				return done(cmd.OutOrStdout(), use, "location", args[0])
			}),
		}
	}

	cmd.AddCommand(
		create,
		list,
		byID("publish", "Show a location on posts", func(cmd *cobra.Command, svc *admin.Service, id int64) error {
			return svc.PublishLocation(cmd.Context(), id, true)
		}),
		byID("unpublish", "Hide a location from posts", func(cmd *cobra.Command, svc *admin.Service, id int64) error {
			return svc.PublishLocation(cmd.Context(), id, false)
		}),
		byID("delete", "Remove a location; its posts stay without one", func(cmd *cobra.Command, svc *admin.Service, id int64) error {
			return svc.DeleteLocation(cmd.Context(), id)
		}),
	)
	return cmd
}

func done(w io.Writer, action, entity, key string) error {
	_, err := fmt.Fprintf(w, "%s %s %s: ok\n", action, entity, key)
	return err
}
