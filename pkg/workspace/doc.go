/*
Package workspace manages isolated working directories backing lanes.

# Layout

	<repo>/                       main workspace (name "main")
	<repo>/.store/main.json       main workspace metadata
	<repo>/.store/main.lockdir/   main workspace lock
	<repo>/.store/workspaces/<name>/        isolated directory
	<repo>/.store/workspaces/<name>.json    metadata
	<repo>/.store/workspaces/<name>.lockdir/ lock

# Crash safety

Every materialize or update first writes a dirty marker file inside the
workspace directory, then does the filesystem work, then deletes the
marker. A marker surviving past process exit means the prior operation
never finished; Recover rebuilds the affected workspace from its recorded
base state rather than trusting whatever partial state is on disk.

Locking uses a directory, not a file, as the lock: directory creation
(mkdir) is atomic on every filesystem this engine targets, which a
create-if-not-exists file write is not guaranteed to be. A lock is
considered stale (and silently reclaimed) if it is older than
lock_max_age or if it names a dead PID on the current host.
*/
package workspace
