// Package main hosts the Shuttle CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon, catalog and history maintenance operations, bridge file
// inspection, log tailing, and configuration scaffolding. It centralizes
// configuration resolution, socket discovery, and session token handling so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// The peer subcommands are the one exception; they emulate the consumer side
// of the bridge protocol and talk to the bridge directory directly.
package main
