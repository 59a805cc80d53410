package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vexd/vexd/pkg/vexerrors"
)

// printResult writes v either as a single JSON object (--json) or via
// render, a human-summary callback that respects -q/-v (spec.md §6
// "--json flag switches all output to single JSON objects").
func printResult(v any, render func()) {
	if flagJSON {
		encoded, err := json.Marshal(v)
		if err != nil {
			printJSONError(err)
			return
		}
		fmt.Println(string(encoded))
		return
	}
	render()
}

func printJSONError(err error) {
	encoded, _ := json.Marshal(map[string]string{"error": err.Error()})
	fmt.Println(string(encoded))
}

// known error kinds every RunE handler's error is checked against: a
// match means the command ran but the operation failed validly, exit 1.
// Anything else (a cobra arg-parse failure, an unrecognized flag) falls
// through to exit 2.
var knownErrorKinds = []error{
	vexerrors.ErrNotARepository,
	vexerrors.ErrConfigInvalid,
	vexerrors.ErrLimitExceeded,
	vexerrors.ErrConcurrentAccess,
	vexerrors.ErrBudgetExceeded,
	vexerrors.ErrConflict,
	vexerrors.ErrNotFound,
	vexerrors.ErrInvalidName,
	vexerrors.ErrLockHeld,
	vexerrors.ErrIOFailure,
}

// exitCodeFor maps a top-level command error to spec.md §6's exit codes:
// 0 success, 1 handled errors, 2 argument parse errors.
func exitCodeFor(err error) int {
	if flagJSON {
		printJSONError(err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	for _, kind := range knownErrorKinds {
		if errors.Is(err, kind) {
			return 1
		}
	}
	return 2
}
