// Package password derives and verifies credential digests with
// PBKDF2-SHA256 and enforces the registration password policy.
//
// Digests and salts are encoded with standard base64 so each fits a
// single text column; the algorithm tag and iteration count are stored
// alongside them so verification always recomputes with the parameters
// the digest was created with.
package password
