package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	e "github.com/pkg/errors"
	"github.com/sahib/snap/catfs"
	"github.com/sahib/snap/catfs/core"
	ie "github.com/sahib/snap/catfs/errors"
	"github.com/sahib/snap/repo"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func handleStage(ctx *cli.Context, rp *repo.Repository) error {
	base := pathBase(ctx, rp)

	for _, arg := range ctx.Args() {
		path, err := rp.WorktreePath(base, arg)
		if err != nil {
			return toExitCode("stage", err)
		}

		if err := rp.FS().Stage(path); err != nil {
			if e.Cause(err) == ie.ErrAlreadyStaged {
				log.Warningf("`%s` is already staged", path)
				continue
			}

			return toExitCode("stage", err)
		}

		log.Infof("staged %s", path)
	}

	return nil
}

func handleUnstage(ctx *cli.Context, rp *repo.Repository) error {
	base := pathBase(ctx, rp)

	for _, arg := range ctx.Args() {
		path, err := rp.WorktreePath(base, arg)
		if err != nil {
			return toExitCode("unstage", err)
		}

		if err := rp.FS().Unstage(path); err != nil {
			if e.Cause(err) == ie.ErrNotStaged {
				log.Warningf("`%s` is not staged", path)
				continue
			}

			return toExitCode("unstage", err)
		}

		log.Infof("unstaged %s", path)
	}

	return nil
}

func handleStaged(ctx *cli.Context, rp *repo.Repository) error {
	paths, err := rp.FS().Staged()
	if err != nil {
		return toExitCode("staged", err)
	}

	for _, path := range paths {
		fmt.Println(path)
	}

	return nil
}

func handleSnapshot(ctx *cli.Context, rp *repo.Repository) error {
	msg := ctx.String("message")
	if msg == "" && ctx.NArg() > 0 {
		msg = strings.Join(ctx.Args(), " ")
	}

	snap, err := rp.FS().MakeSnapshot(msg)
	if err != nil {
		return toExitCode("snapshot", err)
	}

	fmt.Printf(
		"[%s #%d %s] %s\n",
		color.GreenString(snap.Branch),
		snap.Seq,
		color.YellowString(rp.FS().ShortID(snap)),
		snap.Manifest.Message,
	)

	return nil
}

func handleBranchCreate(ctx *cli.Context, rp *repo.Repository) error {
	name := ctx.Args().First()
	if err := rp.FS().Branch(catfs.BranchCreate, name); err != nil {
		return toExitCode("branch create", err)
	}

	return nil
}

func handleBranchSwitch(ctx *cli.Context, rp *repo.Repository) error {
	name := ctx.Args().First()
	if err := rp.FS().Branch(catfs.BranchSwitch, name); err != nil {
		return toExitCode("branch switch", err)
	}

	fmt.Printf("Switched to branch %s\n", color.GreenString(name))
	return nil
}

func handleBranchList(ctx *cli.Context, rp *repo.Repository) error {
	infos, err := rp.FS().Branches()
	if err != nil {
		return toExitCode("branch list", err)
	}

	tabW := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tabW, "\tNAME\tSNAPSHOTS\tHEAD\t\n")

	for _, info := range infos {
		marker, name := "", info.Name
		if info.IsCurrent {
			marker, name = "*", color.GreenString(info.Name)
		}

		head := "-"
		if info.Head != nil {
			head = color.YellowString(rp.FS().ShortID(info.Head))
		}

		fmt.Fprintf(tabW, "%s\t%s\t%d\t%s\t\n", marker, name, info.Snapshots, head)
	}

	return tabW.Flush()
}

func printLogEntry(rp *repo.Repository, snap *core.Snapshot) {
	fmt.Printf(
		"%s #%-3d %s  %s\n",
		color.YellowString(rp.FS().ShortID(snap)),
		snap.Seq,
		color.CyanString(fmt.Sprintf("%-16s", humanize.Time(snap.Created))),
		snap.Manifest.Message,
	)
}

func handleLog(ctx *cli.Context, rp *repo.Repository) error {
	branch := ctx.Args().First()
	if branch == "" {
		history, err := rp.FS().Log()
		if err != nil {
			return toExitCode("log", err)
		}

		for _, snap := range history {
			printLogEntry(rp, snap)
		}

		return nil
	}

	history, err := rp.FS().History(branch)
	if err != nil {
		return toExitCode("log", err)
	}

	// Newest first, like Log() does:
	for idx := len(history) - 1; idx >= 0; idx-- {
		printLogEntry(rp, history[idx])
	}

	return nil
}

func handleShow(ctx *cli.Context, rp *repo.Repository) error {
	rev := ctx.Args().First()
	if rev == "" {
		rev = "HEAD"
	}

	snap, err := rp.FS().Show(rev)
	if err != nil {
		return toExitCode("show", err)
	}

	fmt.Printf("%s %s\n", color.YellowString("snapshot"), snap.ID)
	fmt.Printf("Branch:  %s #%d\n", snap.Branch, snap.Seq)
	fmt.Printf(
		"Date:    %s (%s)\n",
		snap.Created.Local().Format(time.RFC1123Z),
		humanize.Time(snap.Created),
	)
	fmt.Printf("Message: %s\n\n", snap.Manifest.Message)

	tabW := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, path := range snap.Manifest.Paths() {
		fmt.Fprintf(tabW, "  %s\t%s\t\n", snap.Manifest.Files[path], color.GreenString(path))
	}

	return tabW.Flush()
}

func handleStatus(ctx *cli.Context, rp *repo.Repository) error {
	status, err := rp.FS().Status()
	if err != nil {
		return toExitCode("status", err)
	}

	fmt.Printf("On branch %s\n", color.GreenString(status.Branch))
	if status.Head != nil {
		fmt.Printf("Head: %s #%d %s\n",
			color.YellowString(rp.FS().ShortID(status.Head)),
			status.Head.Seq,
			status.Head.Manifest.Message,
		)
	} else {
		fmt.Println("No snapshots yet.")
	}

	if len(status.Staged) == 0 {
		fmt.Println("\nNothing staged.")
		return nil
	}

	fmt.Printf("\nStaged for the next snapshot (%s):\n", humanize.Comma(int64(len(status.Staged))))
	for _, path := range status.Staged {
		fmt.Printf("  %s\n", color.GreenString(path))
	}

	return nil
}
