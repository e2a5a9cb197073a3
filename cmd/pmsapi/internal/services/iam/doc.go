// Package iam provides identity and access management services for the PMS API.
//
// It owns everything between a raw credential and a verified principal:
//
//   - CredentialVerifier: password login that issues access tokens
//   - BearerAuthenticator: per-request token verification and identity hydration
//   - StoreResolver: IdentityResolver backed by the user and role repositories
//   - AdminSeeder: idempotent startup seeding of baseline roles and the first admin
//   - Service: user and role administration used by the HTTP handlers and CLI
//
// Request Flow:
//
//	Request → middleware.Authenticate → BearerAuthenticator.Authenticate() → auth.Principal
//	       ↓
//	   middleware.RequireRoles → auth.Check(routePolicy, principal) → handler
//
// Roles are resolved once per request at authentication time and carried on
// the principal. Authorization never touches the store.
package iam
