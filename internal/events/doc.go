// Package events distributes committed registry events to in-process
// consumers.
//
// The registry persists every event before publishing it, so publishers here
// are best effort: a slow stream subscriber loses events rather than
// stalling mutations, and can catch up from the persisted event log.
package events
