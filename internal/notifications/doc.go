// Package notifications delivers pipeline run milestones via ntfy push,
// gracefully degrading to a no-op when no topic is configured. The pipeline
// depends only on the small Service interface.
package notifications
