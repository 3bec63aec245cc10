// Package daemon wires the bridge protocol components into a long-running
// background service and enforces single-instance execution.
//
// The daemon owns the session lock keeper, the peer heartbeat monitor, the
// focus signal watcher, the acquisition pipeline, and the downloads intake
// poller. It exposes the control operations the IPC layer forwards from the
// CLI: manual imports, catalog and history queries, and notification tests.
// The daemon itself has no window; focus requests from the peer are counted
// and surfaced through Status for an embedding UI to act on.
package daemon
