// Command spool manages durable download queues built from playlist and
// channel URLs: creating queues, running them with proxy rotation and
// pacing, and inspecting their state.
package main
