package main

import (
	"os"

	relayctlcmd "github.com/Stephen-Kennedy/postfix-install/pkg/relayctl/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := relayctlcmd.NewRootCommand(relayctlcmd.DefaultConfig())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
