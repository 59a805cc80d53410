package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vexd/vexd/pkg/repository"
	"github.com/vexd/vexd/pkg/types"
)

var (
	promoteForce      bool
	promoteAutoAccept bool
	promotePrompt     string
)

var promoteCmd = &cobra.Command{
	Use:   "promote <workspace> <target-lane>",
	Short: "rebase a workspace's lane delta onto a target lane, path-conflict checked",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		opts := repository.PromoteOptions{
			Force:      promoteForce,
			AutoAccept: promoteAutoAccept,
			Intent: types.Intent{
				ID:     uuid.NewString(),
				Prompt: promotePrompt,
				Agent:  types.AgentIdentity{AgentID: "cli", AgentType: "cli"},
				Tags:   []string{"promote"},
			},
		}
		if promoteAutoAccept {
			opts.EvaluatorOK = types.EvaluationResult{Passed: true, Evaluator: "cli"}
		}

		result, err := repo.Promote(args[0], args[1], opts, now())
		if err != nil {
			if len(result.Conflicts) > 0 && !flagJSON {
				fmt.Fprintf(os.Stderr, "promote conflicts on %d path(s):\n", len(result.Conflicts))
				for _, c := range result.Conflicts {
					fmt.Fprintf(os.Stderr, "  %s\n", c.Path)
				}
			}
			return err
		}

		printResult(result, func() {
			if result.Transition == nil {
				fmt.Println("nothing to promote")
				return
			}
			if flagQuiet {
				fmt.Println(result.Transition.ID)
				return
			}
			fmt.Printf("proposed transition %s onto lane %s (%s)\n", shortHash(result.Transition.ID), args[1], result.Transition.Status)
		})
		return nil
	},
}

func init() {
	promoteCmd.Flags().BoolVar(&promoteForce, "force", false, "rebase even if conflicting paths are detected")
	promoteCmd.Flags().BoolVar(&promoteAutoAccept, "auto-accept", false, "immediately accept the resulting transition")
	promoteCmd.Flags().StringVar(&promotePrompt, "prompt", "", "intent prompt recorded on the promote transition")
}
