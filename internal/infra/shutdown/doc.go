// Package shutdown coordinates graceful process shutdown.
//
// Components register named hooks as they start; on SIGINT, SIGTERM or
// context cancellation the hooks run newest first under one deadline.
package shutdown
