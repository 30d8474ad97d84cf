// Package middleware provides net/http middleware over the authkit
// engine: a Bearer-token guard that resolves the caller's identity, and
// role/plan gates for routes that declare such requirements.
package middleware
