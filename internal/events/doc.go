// Package events provides the status-changed notification channel
// between the lifecycle core and the host UI layer. Each observed
// transition is published at most once; slow subscribers drop rather
// than block the publisher.
package events
