package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vexd/vexd/pkg/storage"
	"github.com/vexd/vexd/pkg/types"
)

var (
	proposeLane    string
	proposePrompt  string
	proposeAgentID string
	proposeTags    string
)

var proposeCmd = &cobra.Command{
	Use:   "propose [workspace]",
	Short: "snapshot a workspace and propose a transition onto its lane",
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
		lane := proposeLane
		if lane == "" {
			lane = ws.Lane
		}

		state, err := repo.Snapshot(ws.Path, ws.BaseState, now())
		if err != nil {
			return err
		}

		intent := types.Intent{
			ID:     uuid.NewString(),
			Prompt: proposePrompt,
			Agent:  types.AgentIdentity{AgentID: proposeAgentID, AgentType: "cli"},
		}
		if proposeTags != "" {
			intent.Tags = strings.Split(proposeTags, ",")
		}

		t, err := repo.Propose(ws.BaseState, state.ID, intent, lane, types.CostRecord{}, now())
		if err != nil {
			return err
		}

		printResult(t, func() {
			if flagQuiet {
				fmt.Println(t.ID)
				return
			}
			fmt.Printf("transition %s: %s -> %s (lane %s, %s)\n", shortHash(t.ID), fromLabel(t.FromState), shortHash(t.ToState), t.Lane, t.Status)
		})
		return nil
	},
}

func fromLabel(s *string) string {
	if s == nil {
		return "<none>"
	}
	return shortHash(*s)
}

func init() {
	proposeCmd.Flags().StringVar(&proposeLane, "lane", "", "lane to propose onto (default: the workspace's own lane)")
	proposeCmd.Flags().StringVar(&proposePrompt, "prompt", "", "the intent's prompt text")
	proposeCmd.Flags().StringVar(&proposeAgentID, "agent", "cli", "agent id recorded on the intent")
	proposeCmd.Flags().StringVar(&proposeTags, "tags", "", "comma-separated intent tags")
}

var acceptPassed bool
var acceptSummary string

var acceptCmd = &cobra.Command{
	Use:   "accept <transition-id>",
	Short: "evaluate and, if the lane head hasn't moved, accept a proposed transition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		result := types.EvaluationResult{Passed: acceptPassed, Evaluator: "cli", Summary: acceptSummary}
		status, err := repo.Accept(args[0], result, now())
		if err != nil {
			return err
		}

		printResult(map[string]string{"status": string(status)}, func() {
			if flagQuiet {
				fmt.Println(status)
				return
			}
			fmt.Printf("transition %s: %s\n", shortHash(args[0]), status)
		})
		return nil
	},
}

func init() {
	acceptCmd.Flags().BoolVar(&acceptPassed, "passed", true, "whether the evaluator verdict passed")
	acceptCmd.Flags().StringVar(&acceptSummary, "summary", "", "evaluator summary text")
}

var rejectSummary string

var rejectCmd = &cobra.Command{
	Use:   "reject <transition-id>",
	Short: "record a failing evaluation without advancing the lane head",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		result := types.EvaluationResult{Evaluator: "cli", Summary: rejectSummary}
		if err := repo.Reject(args[0], result, now()); err != nil {
			return err
		}

		printResult(map[string]string{"status": "rejected"}, func() {
			if flagQuiet {
				fmt.Println(args[0])
				return
			}
			fmt.Printf("transition %s: rejected\n", shortHash(args[0]))
		})
		return nil
	},
}

func init() {
	rejectCmd.Flags().StringVar(&rejectSummary, "summary", "", "reason recorded on the evaluation")
}

var historyLane string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "list transitions, optionally filtered to one lane",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		var transitions []types.Transition
		err = repo.Store().View(func(tx *storage.Tx) error {
			if historyLane != "" {
				ts, lerr := tx.ListTransitionsByLane(historyLane)
				transitions = ts
				return lerr
			}
			ts, lerr := tx.ListTransitions()
			transitions = ts
			return lerr
		})
		if err != nil {
			return err
		}

		printResult(transitions, func() {
			for _, t := range transitions {
				if flagQuiet {
					fmt.Println(t.ID)
					continue
				}
				fmt.Printf("%s  %s -> %s  lane=%s  %s\n", shortHash(t.ID), fromLabel(t.FromState), shortHash(t.ToState), t.Lane, t.Status)
			}
		})
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyLane, "lane", "", "restrict to one lane")
}

var traceMaxDepth int

var traceCmd = &cobra.Command{
	Use:   "trace <state-id>",
	Short: "walk a state's accepted-transition ancestry back to its root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		var trail []types.Transition
		err = repo.Store().View(func(tx *storage.Tx) error {
			ts, terr := repo.World().Trace(tx, args[0], traceMaxDepth)
			trail = ts
			return terr
		})
		if err != nil {
			return err
		}

		printResult(trail, func() {
			for _, t := range trail {
				if flagQuiet {
					fmt.Println(t.ID)
					continue
				}
				fmt.Printf("%s  %s -> %s  (%s)\n", shortHash(t.ID), fromLabel(t.FromState), shortHash(t.ToState), t.Status)
			}
		})
		return nil
	},
}

func init() {
	traceCmd.Flags().IntVar(&traceMaxDepth, "max-depth", 1000, "maximum ancestry depth to walk")
}

var diffCmd = &cobra.Command{
	Use:   "diff <state-a> <state-b>",
	Short: "show the path-level difference between two states",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		var d types.Diff
		err = repo.Store().View(func(tx *storage.Tx) error {
			dd, derr := repo.World().Diff(tx, args[0], args[1])
			d = dd
			return derr
		})
		if err != nil {
			return err
		}

		printResult(d, func() {
			for _, c := range d.Added {
				fmt.Printf("+ %s\n", c.Path)
			}
			for _, c := range d.Removed {
				fmt.Printf("- %s\n", c.Path)
			}
			for _, c := range d.Modified {
				fmt.Printf("~ %s\n", c.Path)
			}
			if !flagQuiet {
				fmt.Printf("%d unchanged\n", d.UnchangedCount)
			}
		})
		return nil
	},
}

// parseInt64 is a small helper shared by flags that accept an optional
// budget ceiling; blank means "no limit".
func parseInt64(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q: %w", s, err)
	}
	return &n, nil
}
