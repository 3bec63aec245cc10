// Package notifications delivers import lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Completion and
// error notifications honor their config toggles so a user can keep failure
// alerts without per-import chatter.
//
// Extend this package if you need alternative transports; callers depend only
// on the Service interface.
package notifications
