// Package session orchestrates one complete shadow reconciliation
// exchange against the broker.
//
// A Session owns all per-run state: the reconciler, the token source,
// and the derived topic set live inside Run and are discarded when it
// returns. Running the exchange twice means building two sessions;
// nothing is shared between attempts.
//
// The transport is abstracted behind the Conn and Transport
// interfaces so tests drive the exchange against a scripted fake and
// the CLI plugs in the real broker client.
package session
