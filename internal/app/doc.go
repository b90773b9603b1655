// Package app assembles the process: configuration, logging, storage, the
// Telegram bot, the dispatch engine, the directory sync, and the HTTP API.
package app
