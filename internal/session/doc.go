// Package session tracks the pairing between this daemon and its peer
// process: the launch-supplied identity token, the advisory lock record
// the daemon refreshes while it runs, the heartbeat monitor that presumes
// the peer dead once its liveness file goes stale, and the focus signal
// watcher. A missing identity token degrades to an any-peer mode rather
// than failing startup.
package session
