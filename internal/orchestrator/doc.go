// Package orchestrator is the top-level state machine behind the
// getMedias and getLastMedias commands.
//
// A picker run moves Idle -> AwaitingUserSelection -> Processing -> Idle
// and at most one picker session is open at a time. A listing run moves
// Idle -> Processing -> Idle, or through AwaitingPermission when the read
// capabilities of the platform tier are not yet granted. A suspended
// listing is identified by a token that is redeemed exactly once through
// ResolvePermission. Suspended requests live in memory only and are lost
// when the process exits.
//
// All blocking work runs on the shared workers.Pool. Results and busy
// indicator signals are posted to a Loop, the caller's callback thread.
// Listing runs for the same caller are serialized.
//
// Any item failure turns the whole run into a failure whose message is the
// newline-joined error log.
package orchestrator
