package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/xo/internal"
	pkgconfig "github.com/starford/xo/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func dev(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx,
		internal.WithConfig(cfg),
		internal.WithPort(int(cmd.Int("port"))),
	); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := internal.Build(ctx,
		internal.WithConfig(cfg),
		internal.WithClean(cmd.Bool("clean")),
		internal.WithDocuments(cmd.Args().Slice()),
	)
	if err != nil {
		return err
	}
	fmt.Printf("built %d documents in %s\n", len(res.Built), res.Duration)
	return nil
}

func initSite(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	created, err := internal.Init(internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	for _, p := range created {
		fmt.Println("created", p)
	}
	if len(created) == 0 {
		fmt.Println("nothing to do, site already initialised")
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:    "xo",
		Usage:   "Incremental static-site generator with a live-reloading dev server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "xo.yaml",
				Value:       "xo.yaml",
				Sources:     cli.EnvVars("XO_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "dev",
				Usage:  "Build the site, watch for changes and serve it with live reload",
				Action: dev,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP port (overrides config)",
						Sources: cli.EnvVars("PORT"),
					},
				},
			},
			{
				Name:      "build",
				Usage:     "Build the whole site, or only the given documents",
				ArgsUsage: "[document...]",
				Action:    build,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "clean",
						Usage: "Remove the output directory first",
					},
				},
			},
			{
				Name:   "init",
				Usage:  "Write a starter site into the current directory",
				Action: initSite,
			},
			{
				Name:   "mcp",
				Usage:  "Serve build and dependency tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
