package cmd

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	h "github.com/sahib/snap/util/hashlib"
	snaplog "github.com/sahib/snap/util/log"
	"github.com/sahib/snap/version"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func formatGroup(category string) string {
	return strings.ToUpper(category) + " COMMANDS"
}

func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalBool("no-color") {
		color.NoColor = true
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&snaplog.FancyLogFormatter{
		UseColors: !color.NoColor && isatty.IsTerminal(os.Stderr.Fd()),
	})

	log.SetLevel(snaplog.ParseLevel(ctx.GlobalString("log-level"), log.WarnLevel))

	// Route messages of libraries using the standard logger through logrus:
	stdlog.SetFlags(0)
	stdlog.SetOutput(&snaplog.Writer{Level: log.WarnLevel})
	return nil
}

func handleDefault(ctx *cli.Context) error {
	if ctx.NArg() > 0 {
		commandNotFound(ctx, ctx.Args().First())
		return ExitCode{BadArgs, ""}
	}

	return cli.ShowAppHelp(ctx)
}

// withSubcommandCheck guards the default action of commands with subcommands
// from being called with a mistyped subcommand.
func withSubcommandCheck(handler cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if ctx.NArg() > 0 {
			commandNotFound(ctx, ctx.Args().First())
			return ExitCode{BadArgs, ""}
		}

		return handler(ctx)
	}
}

////////////////////////////
// Commandline definition //
////////////////////////////

// RunCmdline starts a snap commandline tool.
func RunCmdline(args []string) int {
	app := cli.NewApp()
	app.Name = "snap"
	app.Usage = "Minimal content-addressed version control"
	app.Version = version.String()
	app.CommandNotFound = commandNotFound
	app.Action = handleDefault
	app.Before = setupLogging

	// Groups:
	repoGroup := formatGroup("repository")
	wdirGroup := formatGroup("staging")
	vcscGroup := formatGroup("version control")
	miscGroup := formatGroup("misc")

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "path,p",
			Usage:  "Path of the repository (searched upwards from the working dir if empty)",
			Value:  "",
			EnvVar: "SNAP_PATH",
		},
		cli.StringFlag{
			Name:   "log-level,l",
			Usage:  "One of debug, info, warning or error",
			Value:  "warning",
			EnvVar: "SNAP_LOG_LEVEL",
		},
		cli.BoolFlag{
			Name:  "no-color",
			Usage: "Do not colorize the output",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:        "init",
			Category:    repoGroup,
			Usage:       "Initialize an empty repository",
			ArgsUsage:   "[<folder>]",
			Description: "Creates a new repository in <folder> (or --path, or the working dir).\n   Hash algorithm, database and strategy cannot be changed later.",
			Action:      handleInit,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "hash",
					Value: h.DefaultAlgorithm,
					Usage: "Hash algorithm: " + strings.Join(h.Algorithms(), ", "),
				},
				cli.StringFlag{
					Name:  "database",
					Value: "disk",
					Usage: "Metadata backend: disk, badger or memory",
				},
				cli.StringFlag{
					Name:  "strategy",
					Value: "manifest",
					Usage: "Snapshot strategy: manifest or dircopy",
				},
			},
		},
		{
			Name:        "stage",
			Aliases:     []string{"add"},
			Category:    wdirGroup,
			Usage:       "Add files to the staging area",
			ArgsUsage:   "<path> [<path>...]",
			Description: "Record <path> for the next snapshot. Its content is read when the snapshot is taken.",
			Action:      withArgCheck(needAtLeast(1), withRepo(handleStage)),
		},
		{
			Name:        "unstage",
			Aliases:     []string{"rm"},
			Category:    wdirGroup,
			Usage:       "Remove files from the staging area",
			ArgsUsage:   "<path> [<path>...]",
			Description: "Forget <path> for the next snapshot. The file itself is not touched.",
			Action:      withArgCheck(needAtLeast(1), withRepo(handleUnstage)),
		},
		{
			Name:        "staged",
			Category:    wdirGroup,
			Usage:       "List the staging area",
			Description: "Print all staged paths in the order they were staged",
			Action:      withRepo(handleStaged),
		},
		{
			Name:        "snapshot",
			Aliases:     []string{"commit"},
			Category:    vcscGroup,
			Usage:       "Record the staged files as new snapshot",
			ArgsUsage:   "-m <message>",
			Description: "Hash all staged files, append a snapshot to the current branch\n   and clear the staging area.",
			Action:      withRepo(handleSnapshot),
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "message,m",
					Value: "",
					Usage: "Provide a meaningful snapshot message",
				},
			},
		},
		{
			Name:        "branch",
			Category:    vcscGroup,
			Usage:       "Create, switch and list branches",
			ArgsUsage:   "[create|switch|list]",
			Description: "Manage branches. Without subcommand all branches are listed.",
			Action:      withSubcommandCheck(withRepo(handleBranchList)),
			Subcommands: []cli.Command{
				{
					Name:      "create",
					Usage:     "Create a new, empty branch",
					ArgsUsage: "<name>",
					Action:    withArgCheck(needAtLeast(1), withRepo(handleBranchCreate)),
				},
				{
					Name:      "switch",
					Aliases:   []string{"checkout"},
					Usage:     "Make <name> the current branch",
					ArgsUsage: "<name>",
					Action:    withArgCheck(needAtLeast(1), withRepo(handleBranchSwitch)),
				},
				{
					Name:    "list",
					Aliases: []string{"ls"},
					Usage:   "List all branches",
					Action:  withRepo(handleBranchList),
				},
			},
		},
		{
			Name:        "log",
			Category:    vcscGroup,
			Usage:       "Show the history of a branch",
			ArgsUsage:   "[<branch>]",
			Description: "List all snapshots of <branch> (default: current), newest first",
			Action:      withRepo(handleLog),
		},
		{
			Name:        "show",
			Category:    vcscGroup,
			Usage:       "Show a single snapshot",
			ArgsUsage:   "[<rev>]",
			Description: "Print the manifest of <rev>. A rev is HEAD, HEAD^, HEAD~n,\n   a branch name or an (abbreviated) snapshot id.",
			Action:      withRepo(handleShow),
		},
		{
			Name:        "status",
			Category:    vcscGroup,
			Usage:       "Show current branch, head and staged files",
			Action:      withRepo(handleStatus),
		},
		{
			Name:        "config",
			Category:    repoGroup,
			Usage:       "Access the repository configuration",
			ArgsUsage:   "[get|set|list]",
			Description: "Without subcommand all keys are listed.",
			Action:      withSubcommandCheck(withRepo(handleConfigList)),
			Subcommands: []cli.Command{
				{
					Name:      "get",
					Usage:     "Get a specific config value",
					ArgsUsage: "<key>",
					Action:    withArgCheck(needAtLeast(1), withRepo(handleConfigGet)),
				},
				{
					Name:      "set",
					Usage:     "Set a specific config value",
					ArgsUsage: "<key> <value>",
					Action:    withArgCheck(needAtLeast(2), withRepo(handleConfigSet)),
				},
				{
					Name:    "list",
					Aliases: []string{"ls"},
					Usage:   "List all config values with their documentation",
					Action:  withRepo(handleConfigList),
				},
			},
		},
		{
			Name:        "backup",
			Category:    repoGroup,
			Usage:       "Write a dump of all metadata to a file",
			ArgsUsage:   "<file>",
			Description: "The dump can be restored into a repository with any database backend.",
			Action:      withArgCheck(needAtLeast(1), withRepo(handleBackup)),
		},
		{
			Name:        "restore",
			Category:    repoGroup,
			Usage:       "Load a dump written by backup",
			ArgsUsage:   "<file>",
			Description: "Keys in the dump overwrite the ones in the repository.",
			Action:      withArgCheck(needAtLeast(1), withRepo(handleRestore)),
		},
		{
			Name:     "version",
			Category: miscGroup,
			Usage:    "Print the version of snap",
			Action:   handleVersion,
		},
	}

	if err := app.Run(args); err != nil {
		code := UnknownError
		if exitErr, ok := err.(ExitCode); ok {
			code = exitErr.Code
		}

		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, color.RedString(msg))
		}

		return code
	}

	return Success
}
