package cmdline

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/aceeric/layerimport/impl/config"
	"github.com/aceeric/layerimport/impl/stream"

	"github.com/urfave/cli/v3"
)

// fromCmdline will be populated with flags indicating which configuration settings were
// specified on the command line.
var fromCmdline config.FromCmdLine

// cfg has the parsed configuration - including defaults (e.g. chunk size) if the user does not override
var cfg = config.Configuration{}

// atomicWrites is the destination for the --atomic-writes flag, copied into cfg after parsing
var atomicWrites bool

func isFile(path string) error {
	if fi, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found")
	} else if fi.IsDir() {
		return fmt.Errorf("not a file")
	}
	return nil
}

func repoFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "repo",
		Usage:       "The repository ID",
		Destination: &cfg.Repo,
		Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
			fromCmdline.Repo = true
			return nil
		},
	}
}

func imagesFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:        "image",
		Usage:       "An image ID (may be repeated)",
		Destination: &cfg.Images,
		Action: func(ctx context.Context, cmd *cli.Command, _ []string) error {
			fromCmdline.Images = true
			return nil
		},
	}
}

func metricsFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:        "metrics",
		Value:       0,
		Usage:       "The port to serve prometheus metrics on (zero disables metrics)",
		Destination: &cfg.Metrics,
		Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
			fromCmdline.Metrics = true
			return nil
		},
	}
}

func importFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "chunk-size",
			Value:       stream.DefaultChunkSize,
			Usage:       "The buffer size in bytes for copying layers out of the archive",
			Destination: &cfg.ImportConfig.ChunkSize,
			Validator: func(n int64) error {
				if n <= 0 {
					return fmt.Errorf("must be greater than zero")
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
				fromCmdline.ChunkSize = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "compression",
			Value:       stream.Gzip,
			Usage:       "Layer compression in storage: gzip, zstd, or none",
			Destination: &cfg.ImportConfig.Compression,
			Validator: func(c string) error {
				validValues := []string{stream.Gzip, stream.Zstd, stream.None}
				if !slices.Contains(validValues, strings.ToLower(c)) {
					return fmt.Errorf("must be one of %s", strings.Join(validValues, ", "))
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.Compression = true
				return nil
			},
		},
		&cli.BoolFlag{
			Name:        "atomic-writes",
			Value:       true,
			Usage:       "Stage each layer and move it into place when complete (--atomic-writes=false writes in place)",
			Destination: &atomicWrites,
			Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
				fromCmdline.AtomicWrites = true
				return nil
			},
		},
	}
}

// newCmds builds the command tree for the command line parser urfave/cli. The tree
// is built per parse since the parser only sets flag defaults into their destinations
// once per tree.
func newCmds() *cli.Command {
	return &cli.Command{
		Name:  "layerimport",
		Usage: "imports layered image archives into content storage",
		// define this or the parser terminates the program
		ExitErrHandler: func(_ context.Context, _ *cli.Command, _ error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Value:       "error",
				Usage:       "Sets the minimum value for logging: debug, warn, info, or error",
				Destination: &cfg.LogLevel,
				Validator: func(lvl string) error {
					validValues := []string{"debug", "warn", "info", "error"}
					if !slices.Contains(validValues, strings.ToLower(lvl)) {
						return fmt.Errorf("must be one of %s", strings.Join(validValues, ", "))
					}
					return nil
				},
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.LogLevel = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "config-file",
				Usage:       "A file to load configuration values from (cmdline overrides file settings)",
				Destination: &cfg.ConfigFile,
				Validator:   isFile,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.ConfigFile = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "storage-path",
				Value:       "/var/lib/layerimport",
				Usage:       "The root directory for unit content, unit records, and repository scratchpads",
				Destination: &cfg.StoragePath,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.StoragePath = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "log-file",
				Value:       "",
				Usage:       "log to the specified file rather than the console",
				Destination: &cfg.LogFile,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.LogFile = true
					return nil
				},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Imports an image archive into a repository",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "import"
					return nil
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:        "archive",
						Usage:       "The tar file produced by an image save",
						Destination: &cfg.Archive,
						Validator:   isFile,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Archive = true
							return nil
						},
					},
					repoFlag(),
					&cli.StringFlag{
						Name:        "mask",
						Usage:       "Stops importing each chain at this image ID (the image and its ancestors are not imported)",
						Destination: &cfg.Mask,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Mask = true
							return nil
						},
					},
				}, importFlags()...),
			},
			{
				Name:  "tags",
				Usage: "Lists the tags of a repository",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "tags"
					return nil
				},
				Flags: []cli.Flag{repoFlag()},
			},
			{
				Name:  "remove",
				Usage: "Removes images from a repository along with the tags that point at them",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "remove"
					return nil
				},
				Flags: []cli.Flag{repoFlag(), imagesFlag()},
			},
			{
				Name:  "copy",
				Usage: "Copies images and their ancestors from one repository to another",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "copy"
					return nil
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "from",
						Usage:       "The source repository ID",
						Destination: &cfg.FromRepo,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.FromRepo = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "to",
						Usage:       "The destination repository ID",
						Destination: &cfg.ToRepo,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.ToRepo = true
							return nil
						},
					},
					imagesFlag(),
				},
			},
			{
				Name:  "list",
				Usage: "Lists stored units, optionally only those in one repository",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "list"
					return nil
				},
				Flags: []cli.Flag{
					repoFlag(),
					&cli.BoolFlag{
						Name:        "header",
						Value:       false,
						Usage:       "Displays a header line",
						Destination: &cfg.ListConfig.Header,
						Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
							fromCmdline.ListConfig = true
							return nil
						},
					},
				},
			},
			{
				Name:  "watch",
				Usage: "Imports archives dropped into a directory until stopped",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "watch"
					return nil
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:        "watch-path",
						Value:       "/var/lib/layerimport/incoming",
						Usage:       "The directory to watch for archives",
						Destination: &cfg.WatchPath,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.WatchPath = true
							return nil
						},
					},
					repoFlag(),
					&cli.StringFlag{
						Name:        "mask",
						Usage:       "Stops importing each chain at this image ID (the image and its ancestors are not imported)",
						Destination: &cfg.Mask,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Mask = true
							return nil
						},
					},
					metricsFlag(),
				}, importFlags()...),
			},
			{
				Name:  "serve",
				Usage: "Runs the query API server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "serve"
					return nil
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "port",
						Value:       8080,
						Usage:       "The port to serve on",
						Destination: &cfg.Port,
						Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
							fromCmdline.Port = true
							return nil
						},
					},
					metricsFlag(),
				},
			},
			{
				Name:  "version",
				Usage: "Displays the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "version"
					return nil
				},
			},
		},
	}
}

// Parse parses the command line. It returns the following:
//
//  1. A FromCmdLine struct which has the command to run ("import", "list", etc.). If the command
//     is the empty string then no sub-command was specified in which case the parser auto-displays
//     help. This struct also has flags telling you which configuration values were provided by the
//     user on the command line.
//  2. A Configuration struct containing the parsed configuration values. For any configuration flag
//     in the FromCmdLine struct with a false value, the corresponding configuration value in *this*
//     struct will be the default.
//  3. An error, if the parser returned one, else nil.
func Parse() (config.FromCmdLine, config.Configuration, error) {
	if err := newCmds().Run(context.Background(), os.Args); err != nil {
		return config.FromCmdLine{}, config.Configuration{}, err
	}
	aw := atomicWrites
	if fromCmdline.AtomicWrites || isImportCommand(fromCmdline.Command) {
		cfg.ImportConfig.AtomicWrites = &aw
	}
	return fromCmdline, cfg, nil
}

func isImportCommand(command string) bool {
	return command == "import" || command == "watch"
}

// ClearParse supports unit testing
func ClearParse() {
	fromCmdline = config.FromCmdLine{}
	cfg = config.Configuration{}
	atomicWrites = false
}
