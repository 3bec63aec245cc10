// Package logs provides file tailing and offset helpers shared by the CLI
// and daemon diagnostics.
//
// It reads log files in bounded windows, supports negative offsets for
// "last N lines" requests, and powers follow-mode streaming for
// `shuttle logs --follow`. Only complete lines are returned: a fragment
// still being written stays pending until its newline arrives, so follow
// readers never see a line split in two. Callers supply context deadlines
// so background polling shuts down cleanly when the CLI exits.
package logs
