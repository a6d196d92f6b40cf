package main

import (
	"fmt"
	"os"

	"assettree/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd("assettree", "Resolve names under a directory or anywhere in its subtree")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
