// Package authkit implements the identity and session core of the
// financeiro platform: credential hashing, signed access tokens, rotating
// opaque refresh tokens, single-use password-reset grants, and audit
// emission.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// the store contracts ([AccountStore], [SessionStore], [ResetStore]) and
// value types (Account, Identity, TokenPair). Durable store
// implementations live in the postgres subpackage; rate limiting lives in
// rate; the HTTP surface lives in httpapi and middleware. The rest of the
// application talks only to the Engine; resource endpoints, dashboards,
// and billing own their persistence and call [Engine.Verify] to resolve
// the caller.
//
// # What this package must NOT do
//
//   - Persist or log a raw refresh or reset token. Only SHA-256 hashes of
//     bearer secrets ever reach a store.
//   - Leak account existence: login and forgot-password failures are
//     indistinguishable from the outside.
//   - Perform I/O during construction (Builder is allocation-only until
//     Build).
package authkit
