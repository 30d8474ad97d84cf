// Package token issues and verifies the two bearer credential kinds of
// the auth core: compact signed access tokens (JWT, HS256) and opaque
// high-entropy refresh/reset tokens.
//
// Access tokens are self-contained and carry the subject's identity
// claims; they are never revocable and rely on a short TTL. Opaque tokens
// are pure entropy; only their SHA-256 hash is ever persisted, and all
// lookup happens by hash.
package token
