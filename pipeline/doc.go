// Package pipeline sends requests to the remote auth service and turns every
// response into a single classified [Outcome].
//
// # Stages
//
// The outbound stage ([AttachBearer]) stamps the stored bearer token when it
// is present and not expired. The inbound stage ([Classify]) is pure: it maps
// a status, body, and transport error to an Outcome. [Client.Do] runs both
// stages and applies side effects: one user-visible notification per failure
// and, on 401, clearing credentials and navigating to the login route.
//
// # Architecture boundaries
//
// The pipeline is the only component that forces a logout in response to a
// failed call. It never changes session state directly; it clears the
// credential store and fires session-expired hooks that the Engine
// subscribes to.
package pipeline
