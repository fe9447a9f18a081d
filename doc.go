// Package roadside provides the identity and access layer for remote traffic
// stop coordination: JWT issuance, user registration and login, refresh token
// rotation, role based access checks and the HTTP helpers that carry an
// authenticated Actor into handlers.
//
// Tokens:
//   - TokenService issues HS256 access and refresh tokens. Claims are the
//     registered set (subject, issuer, audience, expiry, unique token id) plus
//     uid, role and kind; the email is never embedded. Validation enforces the
//     signing method, issuer, audience, expiry and token kind.
//   - Refresh tokens are stateless by default. Configure a RefreshTokenStore
//     (SQL or redis) to rotate them: every refresh revokes the presented token
//     so it can not be replayed. Detached stores such as redis receive new
//     records only after the SQL transaction commits.
//
// Auther:
//   - Register, Authenticate, Refresh and Logout return an AuthResponse and
//     deliver the access token through an optional CredentialWriter, usually
//     an HTTP-only cookie.
//   - Unknown emails and wrong passwords fail the same way.
//
// Access control:
//   - AccessPolicy maps every Action to the roles allowed to attempt it and,
//     for session scoped actions, to the participants of the session.
//   - Callers always pass the Actor explicitly; there is no ambient identity.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter used by the Auther and the
//     session service. Sink errors are logged and never fail the operation.
//
// The session subpackage holds the stop lifecycle: the state machine, the
// append-only transition history and the HTTP controller.
package roadside
