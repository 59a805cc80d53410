package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "manage isolated workspace directories",
}

var (
	workspaceCreateLane    string
	workspaceCreateState   string
	workspaceCreateAgentID string
)

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "materialize a new workspace directory from a state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		var state *string
		if workspaceCreateState != "" {
			state = &workspaceCreateState
		}
		var agentID *string
		if workspaceCreateAgentID != "" {
			agentID = &workspaceCreateAgentID
		}

		ws, err := repo.Workspaces().Create(args[0], workspaceCreateLane, state, agentID, now())
		if err != nil {
			return err
		}

		printResult(ws, func() {
			if flagQuiet {
				fmt.Println(ws.Name)
				return
			}
			fmt.Printf("workspace %s at %s (lane %s)\n", ws.Name, ws.Path, ws.Lane)
		})
		return nil
	},
}

func init() {
	workspaceCreateCmd.Flags().StringVar(&workspaceCreateLane, "lane", "main", "lane this workspace tracks")
	workspaceCreateCmd.Flags().StringVar(&workspaceCreateState, "state", "", "state id to materialize (default: empty workspace)")
	workspaceCreateCmd.Flags().StringVar(&workspaceCreateAgentID, "agent", "", "agent id owning this workspace")
}

var workspaceUpdateCmd = &cobra.Command{
	Use:   "update <name> <state-id>",
	Short: "rewrite a workspace directory to match a different state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.Workspaces().Update(args[0], args[1], now()); err != nil {
			return err
		}

		printResult(map[string]string{"name": args[0], "state": args[1]}, func() {
			if flagQuiet {
				fmt.Println(args[0])
				return
			}
			fmt.Printf("workspace %s updated to state %s\n", args[0], shortHash(args[1]))
		})
		return nil
	},
}

var workspaceRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "delete a workspace's directory and metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.Workspaces().Remove(args[0]); err != nil {
			return err
		}

		printResult(map[string]string{"name": args[0]}, func() {
			fmt.Println(args[0])
		})
		return nil
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "list workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		workspaces, err := repo.Workspaces().List()
		if err != nil {
			return err
		}

		printResult(workspaces, func() {
			for _, ws := range workspaces {
				if flagQuiet {
					fmt.Println(ws.Name)
					continue
				}
				fmt.Printf("%-20s lane=%-16s status=%-6s base=%s\n", ws.Name, ws.Lane, ws.Status, fromLabel(ws.BaseState))
			}
		})
		return nil
	},
}
