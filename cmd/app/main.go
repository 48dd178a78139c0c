package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/livetag/internal"
	"github.com/starford/livetag/internal/tagservice"
	pkgconfig "github.com/starford/livetag/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("root") {
		cfg.Library.Root = cmd.String("root")
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

// tagAction runs op over the files matched by --include. Tags come from
// the positional arguments.
func tagAction(op tagservice.Operation) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tags := cmd.Args().Slice()
		if op == tagservice.OpRemoveAll && len(tags) > 0 {
			return fmt.Errorf("remove-all takes no tags, got %q", strings.Join(tags, " "))
		}

		req := tagservice.Request{
			Op:        op,
			Include:   cmd.String("include"),
			Tags:      tags,
			Commit:    cfg.Tagger.Commit,
			Backup:    cfg.Tagger.Backup,
			KeepGoing: cfg.Tagger.KeepGoing,
		}
		if cmd.IsSet("commit") {
			req.Commit = cmd.Bool("commit")
		}
		if cmd.IsSet("backup") {
			req.Backup = cmd.Bool("backup")
		}
		if cmd.IsSet("keep-going") {
			req.KeepGoing = cmd.Bool("keep-going")
		}

		if _, err := internal.Tag(ctx, req, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	files, err := internal.List(ctx, cmd.String("include"), opts...)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	w := cmd.Root().Writer
	for _, f := range files {
		if len(f.Tags) == 0 {
			fmt.Fprintf(w, "%s: (no tags)\n", f.Path)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", f.Path, strings.Join(f.Tags, ", "))
	}
	return nil
}

func indexAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	stats, err := internal.Index(ctx, opts...)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	fmt.Fprintf(cmd.Root().Writer, "indexed %d, removed %d, failed %d\n", stats.Indexed, stats.Removed, stats.Failed)
	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func includeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "include",
		Aliases: []string{"i"},
		Usage:   "Glob of files to work on, relative to the library root (** crosses folders)",
		Value:   "*",
	}
}

func tagFlags() []cli.Flag {
	return []cli.Flag{
		includeFlag(),
		&cli.BoolFlag{
			Name:    "commit",
			Aliases: []string{"c"},
			Usage:   "Write changes; without it the run only logs what would change",
		},
		&cli.BoolFlag{
			Name:    "backup",
			Aliases: []string{"b"},
			Usage:   "Copy each metadata document to .xmp.bak before overwriting it (the original stays in place)",
		},
		&cli.BoolFlag{
			Name:  "keep-going",
			Usage: "Continue with the next folder when one fails",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "livetag",
		Usage:   "Add and remove Ableton Live browser tags on sample files",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Sample library root (overrides library.root)",
				Sources: cli.EnvVars("LIVETAG_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add tags to the matched files",
				ArgsUsage: "TAG...",
				Flags:     tagFlags(),
				Action:    tagAction(tagservice.OpAdd),
			},
			{
				Name:      "remove",
				Usage:     "Remove tags from the matched files",
				ArgsUsage: "TAG...",
				Flags:     tagFlags(),
				Action:    tagAction(tagservice.OpRemove),
			},
			{
				Name:   "remove-all",
				Usage:  "Remove every tag from the matched files",
				Flags:  tagFlags(),
				Action: tagAction(tagservice.OpRemoveAll),
			},
			{
				Name:   "list",
				Usage:  "Show the tags of the matched files",
				Flags:  []cli.Flag{includeFlag()},
				Action: listAction,
			},
			{
				Name:   "index",
				Usage:  "Sync every folder document into the tag catalog",
				Action: indexAction,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live catalog updates",
				Action: serveAction,
			},
			{
				Name:   "mcp",
				Usage:  "Run an MCP server on stdin/stdout",
				Action: mcpAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
