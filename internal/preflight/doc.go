// Package preflight provides readiness checks for the filesystem paths and
// external services that Shuttle depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure before the
//     bridge comes up, so a missing or unwritable directory is visible
//     immediately instead of surfacing as a mid-import error.
//   - The CLI "shuttle status" command uses individual check functions
//     (CheckDirectoryAccess, CheckNtfy) to display health rows.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
