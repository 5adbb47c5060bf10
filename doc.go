// Package auth is the credential and access-control core of the Archivista
// museum-collection system: account registration and login, bcrypt password
// hashing, self-issued JWT bearer tokens, and role-based authorization gates.
//
// Accounts:
//   - Accounts carry a set of role memberships (many-to-many against a seeded
//     role vocabulary). Username and email are unique at the storage layer, so
//     racing registrations are rejected by the database rather than by an
//     application-level pre-check.
//   - The AccountManager orchestrates the lifecycle: register, login, profile
//     updates, activation toggles, full-set role replacement, and deletion
//     (which cascades memberships).
//
// Tokens:
//   - TokenService mints HS256-signed JWTs whose role claims reflect the
//     account's memberships at issuance time. There is no revocation list;
//     keep the configured lifetime short if role changes must propagate
//     quickly.
//
// Authorization:
//   - RequireAuthenticated and RequireRole are router middleware gates. Role
//     checks are exact, case-sensitive name matches against the seeded
//     vocabulary; there is no hierarchy between roles.
package auth
