// Package hub fans pipeline progress lines out to every connected observer.
//
// Delivery is best effort: a slow or vanished observer loses lines rather
// than stalling the pipeline. Abandoned subscriptions are reclaimed by a TTL
// sweep that runs as a side effect of each new Subscribe call instead of a
// dedicated timer, which is adequate at the expected subscription churn.
package hub
