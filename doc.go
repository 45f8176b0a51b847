// Package sessionstore provides a database-backed session and identity layer:
// bearer token authentication resolved against a session store, identity
// reconciliation for third-party OAuth profiles, PBKDF2 password credentials,
// and HTTP handlers for the session lifecycle.
//
// Token scheme:
//   - TokenScheme interprets the Authorization header and resolves the bearer
//     token to a persisted session with its owning user eagerly loaded. It is
//     the single interpreter of the header; everything downstream works with
//     Credentials stored in the request locals.
//
// Identity reconciliation:
//   - SessionManager reconciles a verified provider profile into local user
//     and session records without creating duplicates. Correctness under
//     concurrent identical logins is delegated to database unique constraints;
//     a lost race surfaces as a recoverable conflict and the find is retried
//     exactly once.
//
// Providers:
//   - The provider subpackage holds the per-provider token verification
//     contract and a registry. Providers may expose extra routes (e.g. the
//     Twitter application-only flow) that the session controller mounts next
//     to the standard lifecycle endpoints.
package sessionstore
