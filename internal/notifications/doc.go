// Package notifications delivers pipeline events via pluggable notifiers.
//
// NewService combines a console sink (the operator's terminal), ntfy push
// notifications when a topic is configured, and a structured log record for
// every event. Enumerated event types cover the pipeline milestones so phase
// handlers can emit consistent, user-friendly messages without duplicating
// formatting or HTTP glue.
//
// All pipeline code depends only on the Service interface.
package notifications
