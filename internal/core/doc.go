// Package core provides the business operations of the ledger back office.
//
// It sits between the transport layers (the HTTP server in package web and
// the admin CLI) and storage. Nothing here knows about HTTP.
//
// # Ledger
//
// [Service.UploadLedger] hands an uploaded file to the ingestion pipeline in
// package ledger, which writes through a Postgres-backed ledger.Store. Uploads
// are throttled by an [UploadLimiter] and run detached from the client's
// context so that a dropped connection does not abandon a half-written file.
// Every finished ingestion is announced as an events.UploadCompleted.
//
// # Accounts
//
// Users sign in with email, password and the user type matching their role,
// and receive a session token. New users file a registration request that an
// administrator approves or rejects. Administrators may reset a forgotten
// password through an emailed link.
//
// # Error Handling
//
// Business-rule failures are returned as *Error values carrying a catalogue
// code; [MapError] turns those and lower-level errors into a [UserMessage].
// The web layer derives the HTTP status from the error kind:
//
//   - ErrInvalidInput: 400
//   - ErrUnauthorized: 401
//   - ErrForbidden: 403
//   - ErrNotFound: 404
//   - ErrRateLimited: 429
//
// # Housekeeping
//
// [Service.StartHousekeeping] schedules cleanup of old registration requests
// and spent reset tokens.
package core
