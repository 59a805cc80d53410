// Command vexctl is a thin command-line frontend over pkg/repository
// (spec.md §6 "CLI surface"). It wires just enough of the full verb list
// to exercise the core engine end to end: init, status, snapshot,
// propose, accept, reject, history, trace, diff, lanes/lane create,
// workspace create/update/remove/list, promote, gc, doctor. The rest of
// §6's surface (search, serve, mcp, remote push/pull/status, completion,
// template, semantic-search) needs collaborators this module doesn't
// build — REST/RPC servers, embedding clients, shell-completion
// generators — and is deliberately left unimplemented here.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagJSON    bool
	flagQuiet   bool
	flagVerbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:           "vexctl",
	Short:         "vexctl drives a vexd repository: content-addressed snapshots, lanes, and promote",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit a single JSON object on stdout instead of a human summary")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "print only identifiers")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print full (un-truncated) hashes")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(proposeCmd)
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(lanesCmd)
	rootCmd.AddCommand(laneCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(gcCmd)

	laneCmd.AddCommand(laneCreateCmd)
	workspaceCmd.AddCommand(workspaceCreateCmd)
	workspaceCmd.AddCommand(workspaceUpdateCmd)
	workspaceCmd.AddCommand(workspaceRemoveCmd)
	workspaceCmd.AddCommand(workspaceListCmd)
}

// shortHash truncates a hash to 12 characters unless -v was given
// (spec.md §6 "default prints human summaries with short 12-char
// hashes; -v prints full hashes").
func shortHash(h string) string {
	if flagVerbose || len(h) <= 12 {
		return h
	}
	return h[:12]
}
