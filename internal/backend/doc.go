// Package backend is the HTTP client for the code generation service.
//
// The service exposes two endpoints. POST /template classifies a prompt
// and returns the base prompts plus the starter directives shown to the
// user. POST /chat takes a message history and returns directive text.
package backend
