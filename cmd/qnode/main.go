package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "qnode",
		Short: "Quantum node ring simulator",
		Long: `qnode builds a ring of quantum nodes, lets each node randomly change
state over a number of discrete time steps, and reports what happened.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the qnode version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qnode %s\n", version)
		},
	}
}
