// Package history persists the import history file: a most-recent-first
// array of completed imports, capped at a configured count with the
// oldest entries trimmed. A missing or unparsable file starts an empty
// history rather than failing.
package history
