// Package credentials provides account activation, profile management and
// revision history on top of Bun repositories and go-router handlers.
//
// Account lifecycle:
//   - Users carry a UserStatus field that is persisted via Bun. Registration
//     leaves them pending with an activation code; ActivateAccountHandler
//     checks the code, moves the user to active through the
//     UserStateMachine and joins the default group in one transaction.
//   - ResendActivationHandler mails a fresh activation link. Both activation
//     endpoints are rate limited per client with a RateThrottler.
//
// Profile:
//   - UpdateDetailsHandler, UpdatePasswordHandler and DeleteAccountHandler
//     back the profile pages. Each change writes one revision per field and
//     security sensitive fields are stored without an actor.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the commands and
//     the state machine. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking the request. The
//     activitymap package normalizes events for external feeds.
//
// History:
//   - The revision package turns stored revisions into sentences phrased for
//     the viewer. AccountController.HistoryShow renders them with the
//     TemplateHelpers available to the view.
package credentials
