// Package auth provides stateless bearer token authentication and path based
// role authorization.
//
// Tokens:
//   - TokenCodec issues and verifies HS256 tokens carrying the subject id,
//     username, roles and an issue/expiry window. Tokens are never stored, a
//     token is valid as long as its signature checks out and it has not expired.
//
// Requests:
//   - LoginExchange trades a username and password for a token. Unknown users
//     and wrong passwords produce the same error and cost the same bcrypt work.
//   - RequestAuthenticator turns an Authorization header into a Principal. An
//     invalid or expired token makes the request anonymous, the Gate decides
//     whether anonymous access is acceptable.
//   - Gate maps request paths to required roles and answers allow, 401 or 403.
//
// Activity sinks:
//   - ActivitySink receives login, token rejection, access denial and
//     registration events. Sinks run best-effort (errors are logged) so they
//     never block authentication.
package auth
