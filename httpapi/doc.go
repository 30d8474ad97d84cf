// Package httpapi exposes the auth engine over HTTP with a JSON
// envelope: {"success": true, "data": ...} on the happy path,
// {"success": false, "error": {"code", "message", ...}} otherwise.
package httpapi
