package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [workspace]",
	Short: "hash a workspace directory into the content store, recording a new state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		name := "main"
		if len(args) == 1 {
			name = args[0]
		}
		ws, err := repo.Workspaces().Get(name)
		if err != nil {
			return err
		}

		state, err := repo.Snapshot(ws.Path, ws.BaseState, now())
		if err != nil {
			return err
		}

		printResult(state, func() {
			if flagQuiet {
				fmt.Println(state.ID)
				return
			}
			fmt.Printf("state %s (tree %s)\n", shortHash(state.ID), shortHash(state.RootTree))
		})
		return nil
	},
}
