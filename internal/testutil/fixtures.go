package testutil

import (
	"embed"
	"testing"
)

//go:embed fixtures/*.txt
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// Directives returns the directive text fixture name, failing t if it is
// missing.
func Directives(t testing.TB, name string) string {
	t.Helper()
	data, err := LoadFixture(name)
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", name, err)
	}
	return string(data)
}

// CounterTemplate returns the starter project the fake backend serves.
func CounterTemplate(t testing.TB) string {
	return Directives(t, "counter_template.txt")
}

// CounterReply returns the fake backend's reply to the first prompt.
func CounterReply(t testing.TB) string {
	return Directives(t, "counter_reply.txt")
}
