// Package telegram adapts the Telegram Bot API (via telebot) to the
// delivery contract the broadcast engine expects, and hosts the two
// operator-facing bot commands.
package telegram
