// Package session owns outbound delivery policy for Admiral forwards.
//
// Ownership boundary:
// - connect/write timeouts for one forward attempt
// - retry/backoff primitives
package session
