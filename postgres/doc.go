// Package postgres implements the durable authkit stores (accounts,
// refresh sessions, password-reset grants, and the audit sink) over
// database/sql with the pgx stdlib driver.
//
// Rotation and grant consumption use conditional UPDATEs so the
// check-then-act sequences of the refresh and reset flows are settled by
// the database, not by a read-then-write race in Go.
package postgres
