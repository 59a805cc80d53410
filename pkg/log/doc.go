/*
Package log provides structured logging for vexd using zerolog.

The log package wraps zerolog to give every subsystem (content store,
world-state manager, workspace manager, repository) JSON-structured logs
with component tags, configurable severity, and a handful of context
helpers for the identifiers agents care about: lane, state, workspace.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("repository opened")

	gcLog := log.WithComponent("gc")
	gcLog.Info().Int("reclaimed_objects", n).Msg("sweep complete")

	laneLog := log.WithLane("feat-auth")
	laneLog.Warn().Msg("stale accept: lane head moved since propose")

Context loggers compose with zerolog's own chaining:

	log.WithComponent("promote").
		With().Str("lane", lane).Str("target", target).Logger().
		Info().Msg("conflict detected")

# Levels

Debug is for snapshot/diff internals, Info for state transitions (propose,
accept, reject, promote, gc), Warn for recoverable anomalies (stale lock
reclaimed, stale accept), Error for failures surfaced to the caller.
*/
package log
