package main

import (
	"fmt"
	"os"

	"github.com/stevdb/stevdb/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stevdb:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
