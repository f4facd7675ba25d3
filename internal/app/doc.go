// Package app wires the connection registry to the outside world.
//
// Gateway turns transport events into registry operations, Dispatcher is the broadcast API
// used by HTTP handlers and the cross-instance relay, and Sweeper evicts stale connections.
package app
