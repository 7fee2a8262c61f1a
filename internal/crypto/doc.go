// Package crypto provides encryption services for data at rest.
//
// Implements AES-256-GCM under two independent key roles: KeyCookie for
// browser cookie values and KeyToken for OAuth credentials stored in
// PostgreSQL. Failures surface as empty strings, never as errors.
package crypto
