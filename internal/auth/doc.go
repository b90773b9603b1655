// Package auth implements operator sign-in: password verification, a
// Telegram verification code as the second step, and JWT issuance.
package auth
