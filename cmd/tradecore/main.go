package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "tradecore",
		Short: "Weather bracket trading core",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newBacktestCmd())
	root.AddCommand(newReconcileCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
