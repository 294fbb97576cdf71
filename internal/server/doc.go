// Package server exposes a running build to a browser.
//
// Endpoints:
//
//	GET  /              minimal viewer page
//	GET  /api/state     build state as JSON
//	GET  /api/mount     mount projection of the current tree
//	POST /api/chat      {"message": "..."} follow-up request
//	GET  /ws            websocket stream of log lines and state changes
//
// Websocket clients receive a "state" message on connect and after every
// change, and "log" messages carrying new operator log lines in order.
// They may send {"type":"send","input":"..."} and {"type":"ping"}.
package server
