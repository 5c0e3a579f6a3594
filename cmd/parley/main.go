package main

import (
	"fmt"
	"io"
	"os"

	"parley/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "version":
			return runVersion(os.Stdout)
		case "server":
			return runServer(args[1:])
		}
	}
	return runServer(args)
}

func runVersion(out io.Writer) int {
	info := version.GetVersionInfo()
	if info.Version == "" || info.Version == "dev" {
		fmt.Fprintln(out, "parley dev")
		return 0
	}
	fmt.Fprintf(out, "parley version %s\n", info.Version)
	return 0
}
