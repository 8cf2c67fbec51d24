// Package download executes single queue items: it transitions the item to
// downloading, invokes the media extractor, classifies the result, and writes
// exactly one terminal outcome back to the store.
//
// The executor is deliberately sequential; concurrency and pacing decisions
// belong to the workflow orchestrator.
package download
