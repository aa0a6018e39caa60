// Package events defines the cycle related events emitted on the event bus.
//
// Available event types:
//   - SnapshotEvent: fresh system state snapshot
//   - DecisionEvent: decisions produced by one cycle
//   - NotificationEvent: outcome of one notification attempt
//   - PriceChangeEvent: significant price change observed on the source
package events
