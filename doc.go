// Package goAuthClient keeps a user's session with a remote auth service:
// it logs in, persists the bearer token and profile, restores them on
// startup, refreshes the token before it expires, and sends every REST call
// through a pipeline that reacts uniformly to authorization failures.
//
// # Architecture
//
// The Engine is the session state machine. It is assembled by Builder from:
//
//   - store: the credential store (memory, Redis or SQLite backend)
//   - jwt: offline inspection of the token's claims and expiry
//   - pipeline: bearer attachment and response classification
//   - refresh: the background near-expiry check
//   - internal/audit: asynchronous session event dispatch
//
// # Failure model
//
// Login, Register, Refresh and Logout never return errors. They report
// through their bool result and State.Error. A 401 on any call made through
// the pipeline clears the store and moves the Engine to Anonymous. Network
// failures, timeouts, 403, 404 and 5xx never touch the session.
//
// When two operations overlap, the most recently started one wins: results
// of superseded operations are discarded without touching state or store.
//
// # Quick start
//
//	engine, err := goAuthClient.New().
//	    WithConfig(cfg).
//	    WithNotifier(toasts).
//	    Build()
//	if err != nil { ... }
//	defer engine.Close()
//	engine.Initialize(ctx)
//	if !engine.Login(ctx, goAuthClient.LoginRequest{Username: u, Password: p}) {
//	    fmt.Println(engine.State().Error)
//	}
package goAuthClient
