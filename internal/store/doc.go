// Package store is telecast's persistence layer (SQLite).
//
// It owns the durable records the service works with:
//   - broadcast tasks and their lifecycle state
//   - channels (Telegram destinations with operating windows)
//   - operator accounts
//   - the username -> chat-id directory imported from the sheet
//   - search keys
//
// Records are soft-deleted; reads filter them out.
package store
