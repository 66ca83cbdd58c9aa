// Package admiral owns the broker: admission, the bounded message queue,
// the network accept loop and the dispatch loop.
//
// Ownership boundary:
// - Queue: mutex-guarded ring with arena-backed payload slots
// - Admit: envelope validation and sender anti-spoofing
// - Server: serial accept, one packet per connection
// - Broker: dequeue, resolve, sanitize, forward
// - Service: process lifecycle and the admin HTTP surface
package admiral
