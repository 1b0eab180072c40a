// Package broadcast is the recurring delivery engine: one cron entry per
// subscribed recipient, a cached snapshot of active posts to sample from, and
// a batched sent-counter write path.
//
// Ownership rules:
//   - The Service is the single authority over recipient jobs and the
//     process-wide default interval. One mutex covers create, reschedule,
//     cancel, and iterate-all, so RescheduleAll always observes a consistent
//     job set and a job started mid-reschedule gets the new default.
//   - The post cache is single-writer / many-reader; the snapshot is swapped
//     atomically and never mutated in place.
//   - The sent counter is drained atomically by the flush timer; increments
//     taken by a failed flush are dropped rather than requeued (bounded loss,
//     at most one flush interval worth of counts).
package broadcast
