// Package workflow orchestrates queue runs: it guards against concurrent
// runs of the same queue, recovers items stranded by a previous crash,
// applies the pacing policy, drives the sequential item executor, and
// finalizes the queue status when the run ends.
package workflow
