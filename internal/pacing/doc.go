// Package pacing decides how each download attempt reaches the network:
// which proxy to route through, and how long to wait before starting.
//
// A Policy is an immutable snapshot of the pacing configuration taken at the
// start of a run; edits to the proxy list mid-run never affect attempts
// already scheduled. Proxy rotation and inter-item delays are mutually
// exclusive: routing through a proxy replaces the delay entirely.
package pacing
