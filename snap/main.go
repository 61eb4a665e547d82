package main

import (
	"os"

	"github.com/sahib/snap/cmd"
)

func main() {
	os.Exit(cmd.RunCmdline(os.Args))
}
