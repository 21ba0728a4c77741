package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/mtree/cmd/tree"
	"github.com/ValentinKolb/mtree/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "mtree",
		Short: "layered, versioned key-path store",
		Long: fmt.Sprintf(`mtree (v%s)

A versioned key-path store built on append-only logs. Trees can
inherit from parent trees and mount other trees (or pinned versions
of them) as links.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mtree",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mtree v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	for _, c := range tree.Commands {
		RootCmd.AddCommand(c)
	}
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupStorageFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
