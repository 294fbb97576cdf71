// Package testutil provides fixtures and a wired environment for
// end-to-end build tests.
//
// # Fixtures
//
// Directive text fixtures are embedded using go:embed:
//
//	fixtures/counter_template.txt  starter project served by /template
//	fixtures/counter_reply.txt     reply to the first chat
//
// # Test Environment
//
// NewTestEnv wires an app.App to a runtime.MockRuntime and a FakeBackend:
//
//	env := testutil.NewTestEnv(t)
//	b, err := env.App.NewBuilder("build-test")
//	...
//	env.Runtime.GetCallsFor("Spawn")
//
// Install swaps env.App in as app.Default for command tests.
package testutil
