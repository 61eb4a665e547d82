package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sahib/snap/repo"
	"github.com/sahib/snap/util"
	"github.com/sahib/snap/util/compression"
	"github.com/sahib/snap/version"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func guessInitFolder(ctx *cli.Context) string {
	if folder := ctx.Args().First(); folder != "" {
		return mustAbsPath(folder)
	}

	if folder := ctx.GlobalString("path"); folder != "" {
		return mustAbsPath(folder)
	}

	return mustAbsPath(".")
}

func handleInit(ctx *cli.Context) error {
	folder := guessInitFolder(ctx)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("init: %v", err)}
	}

	opts := repo.InitOptions{
		HashAlgo: ctx.String("hash"),
		Database: ctx.String("database"),
		Strategy: ctx.String("strategy"),
	}

	if err := repo.Init(folder, opts); err != nil {
		return toExitCode("init", err)
	}

	fmt.Printf("Initialized empty snap repository in %s\n", color.GreenString(folder))
	return nil
}

func printConfigDocEntry(rp *repo.Repository, key string) {
	val := rp.Config.Uncast(key)
	if val == "" {
		val = color.YellowString("(empty)")
	}

	defaultMarker := ""
	if rp.Config.IsDefault(key) {
		defaultMarker = color.CyanString("(default)")
	}

	entry := rp.Config.GetDefault(key)
	fmt.Printf("%s: %v %s\n", color.GreenString(key), val, defaultMarker)

	defaultVal := fmt.Sprintf("%v", entry.Default)
	if defaultVal == "" {
		defaultVal = color.YellowString("(empty)")
	}

	fmt.Printf("  Default:       %v\n", defaultVal)
	fmt.Printf("  Documentation: %v\n", entry.Docs)
	fmt.Printf("  Fixed at init: %v\n", yesify(entry.NeedsRestart))
}

func yesify(val bool) string {
	if val {
		return color.GreenString("yes")
	}

	return color.RedString("no")
}

func handleConfigList(ctx *cli.Context, rp *repo.Repository) error {
	keys := rp.Config.Keys()
	sort.Strings(keys)

	for _, key := range keys {
		printConfigDocEntry(rp, key)
	}

	return nil
}

func checkConfigKey(rp *repo.Repository, key string) error {
	if !rp.Config.IsValidKey(key) {
		return ExitCode{BadArgs, fmt.Sprintf("config: no such key: %s", key)}
	}

	return nil
}

func handleConfigGet(ctx *cli.Context, rp *repo.Repository) error {
	key := ctx.Args().First()
	if err := checkConfigKey(rp, key); err != nil {
		return err
	}

	fmt.Println(rp.Config.Uncast(key))
	return nil
}

func handleConfigSet(ctx *cli.Context, rp *repo.Repository) error {
	key := ctx.Args().Get(0)
	if err := checkConfigKey(rp, key); err != nil {
		return err
	}

	// Those decide the on-disk format and are fixed after init.
	if rp.Config.GetDefault(key).NeedsRestart {
		return ExitCode{UserError, fmt.Sprintf("config set: %s cannot be changed after init", key)}
	}

	val, err := rp.Config.Cast(key, strings.Join(ctx.Args()[1:], " "))
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config set: %v", err)}
	}

	if err := rp.Config.Set(key, val); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config set: %v", err)}
	}

	if err := rp.SaveConfig(); err != nil {
		return toExitCode("config set", err)
	}

	return nil
}

func handleBackup(ctx *cli.Context, rp *repo.Repository) error {
	path := ctx.Args().First()

	buf := &bytes.Buffer{}
	zipW := compression.NewWriter(buf)
	if err := rp.FS().Export(zipW); err != nil {
		return toExitCode("backup", err)
	}

	if err := zipW.Close(); err != nil {
		return toExitCode("backup", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return toExitCode("backup", err)
	}

	fmt.Printf("Wrote %s of metadata to %s\n", humanize.Bytes(uint64(buf.Len())), path)
	return nil
}

func handleRestore(ctx *cli.Context, rp *repo.Repository) error {
	path := ctx.Args().First()

	fd, err := os.Open(path)
	if err != nil {
		return toExitCode("restore", err)
	}

	defer util.Closer(fd)

	// Uncompressed dumps are accepted as well.
	zipR, err := compression.NewReader(fd)
	if err != nil {
		return toExitCode("restore", err)
	}

	if err := rp.FS().Import(zipR); err != nil {
		return toExitCode("restore", err)
	}

	log.Infof("restored metadata from %s", path)
	return nil
}

func handleVersion(ctx *cli.Context) error {
	fmt.Printf("snap %s\n", version.String())
	if version.BuildTime != "" {
		fmt.Printf("Built: %s\n", version.BuildTime)
	}

	return nil
}
