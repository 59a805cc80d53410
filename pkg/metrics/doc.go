/*
Package metrics exposes Prometheus instrumentation and a lightweight
component-health registry for vexd.

# Metrics

Gauges and counters are grouped by the component they describe: the
content store (object counts, bytes stored, put latency, stat-cache hit
rate), the world-state manager (snapshot latency, transition outcomes,
stale-accept count), the workspace manager (lock-acquire latency, stale
locks reclaimed, dirty markers recovered by the doctor sweep), promote
(outcome counts, conflicting-path counts), GC (duration, objects/bytes
reclaimed), budgets (usage percentage per lane/limit, exceeded count),
and the evaluator runner (duration, timeouts).

Handler() returns the standard promhttp scrape handler; mounting it on an
HTTP mux is the job of whatever server process embeds this package — this
package does not listen on a socket itself.

# Health

RegisterComponent/UpdateComponent/GetHealth/GetReadiness implement an
in-process health registry: a subsystem registers its status and updates
it as conditions change, and GetHealth aggregates them into a single
healthy/unhealthy verdict without needing a running HTTP server to observe
it. No package in this module registers a component, and the `doctor`
CLI verb does not read the registry.

# Collector

Collector periodically samples a repository's object/byte counts and
per-lane budget usage into the package's gauges, the way a long-running
host process (outside this module's scope) would drive a /metrics
endpoint.
*/
package metrics
