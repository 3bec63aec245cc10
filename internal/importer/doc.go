// Package importer turns downloaded artifacts into completed imports.
//
// The pipeline validates an artifact, self-heals partial prior
// acquisitions, extracts compressed bundles, resolves display metadata and
// a thumbnail, and publishes an import request on the bridge. The request
// write returns immediately; a background waiter correlates the peer's
// completion, records import history, and reports the outcome through the
// collaborator callback. Every acquisition is tracked in the catalog from
// pickup to its terminal imported or failed state.
package importer
