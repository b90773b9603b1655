// Package api exposes the operator-facing HTTP surface: authentication,
// channel and user administration, image uploads, and broadcast submission.
// Every response uses the same envelope so clients can branch on ok/status
// without inspecting transport details.
package api
