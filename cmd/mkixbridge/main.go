package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkixbridge/bridge/cmd/mkixbridge/internal/run"
)

func main() {
	root := &cobra.Command{
		Use:   "mkixbridge",
		Short: "Bridge between the MkIX chat platform and OneBot v11",
	}
	root.AddCommand(run.NewRunCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
