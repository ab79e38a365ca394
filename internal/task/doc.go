// Package task turns long-running media-processing requests into tracked
// background tasks. It enforces the per-user and global concurrency
// ceilings, spawns one execution unit per admitted task, keeps durable
// progress in the task store, and supports cooperative cancellation at
// stage boundaries.
package task
