// Package domain defines the deliberation entities and the pure rules that
// govern them: session and round lifecycle transitions, statement timers,
// group partitioning, and answer validation. Persistence and propagation
// concerns live elsewhere; everything here is deterministic given its inputs.
package domain
