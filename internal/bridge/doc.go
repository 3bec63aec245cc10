// Package bridge implements the filesystem protocol shared with the peer
// application.
//
// Every exchange rides on plain files in one shared directory: a per-session
// lock record the daemon refreshes, a per-session heartbeat the peer writes,
// an existence-only focus signal, and the single-slot import request and
// completion files of the acquisition handshake. Each read classifies the
// file as absent, valid, or corrupt; all three are recoverable, and a
// corrupt file is never taken as evidence about the peer's state.
package bridge
