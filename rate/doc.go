// Package rate throttles abusive request patterns with a
// sliding-window-with-block counter per (endpoint, client) key.
//
// The window transition is check-then-act, so both stores apply it
// atomically per key: the Redis store runs the whole transition in a
// single Lua script, the in-process store under a mutex. A counter-store
// fault is a deliberate fail-open condition; availability is prioritized
// over strict throttling for infrastructure faults, and the limiter
// allows the request through.
package rate
