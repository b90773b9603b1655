package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telecast/internal/config"
	"telecast/internal/model"
	"telecast/internal/store"
	"telecast/pkg/logx"
)

// Sign-in is two steps. Login checks the password and pushes a one time
// code to the operator's private Telegram chat; VerifyCode trades that code
// for a token pair.

// ErrBadCredentials covers unknown usernames and wrong passwords alike.
var ErrBadCredentials = errBadCredentials

// ErrCodeInvalid covers wrong, expired, and attempt-exhausted codes alike.
var ErrCodeInvalid = errors.New("verification code is invalid or expired")

// ErrInvalidToken reports a refresh or access token that failed validation.
var ErrInvalidToken = errInvalidToken

// NotReachableError means the bot has no private chat with the operator,
// either because the directory has no entry or Telegram refused the send.
// BotLink tells the operator which bot to open first.
type NotReachableError struct {
	BotLink string
}

func (e *NotReachableError) Error() string {
	return fmt.Sprintf("cannot deliver verification code, open %s and press start first", e.BotLink)
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

type Directory interface {
	DirectoryByUsername(ctx context.Context, username string) (*model.DirectoryEntry, error)
}

// CodeSender pushes the verification code over Telegram.
type CodeSender interface {
	SendText(ctx context.Context, address, text string) error
	BotLink() string
}

// Challenge identifies the pending second step after a correct password.
type Challenge struct {
	UserID string `json:"user_id"`
}

type Service struct {
	cfg    config.AuthConfig
	users  UserStore
	dir    Directory
	sender CodeSender
	codes  *codeCache
	log    logx.Logger
	now    func() time.Time
}

func NewService(cfg config.AuthConfig, users UserStore, dir Directory, sender CodeSender, log logx.Logger) *Service {
	return &Service{
		cfg:    cfg,
		users:  users,
		dir:    dir,
		sender: sender,
		codes:  newCodeCache(cfg.CodeTTLOrDefault(), cfg.CodeMaxAttemptsOrDefault()),
		log:    log,
		now:    time.Now,
	}
}

// Login verifies the password and sends a verification code to the
// operator's private chat. The directory maps the operator's Telegram
// username to a chat id the bot may message.
func (s *Service) Login(ctx context.Context, username, password string) (*Challenge, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, ErrBadCredentials
	}

	entry, err := s.dir.DirectoryByUsername(ctx, user.TeleUser)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotReachableError{BotLink: s.sender.BotLink()}
		}
		return nil, err
	}

	code, err := s.codes.issue(user.ID)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Your verification code is %s. It expires in %s.", code, s.cfg.CodeTTLOrDefault())
	if err := s.sender.SendText(ctx, entry.ChatID, text); err != nil {
		s.log.Warn("verification code delivery failed",
			logx.String("user_id", user.ID), logx.Err(err))
		return nil, &NotReachableError{BotLink: s.sender.BotLink()}
	}

	s.log.Info("verification code sent", logx.String("user_id", user.ID))
	return &Challenge{UserID: user.ID}, nil
}

// VerifyCode completes the login and issues the token pair.
func (s *Service) VerifyCode(ctx context.Context, userID, code string) (*TokenPair, *model.User, error) {
	if !s.codes.verify(userID, code) {
		return nil, nil, ErrCodeInvalid
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrCodeInvalid
		}
		return nil, nil, err
	}
	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh trades a valid refresh token for a new pair. The user is reloaded
// so a deleted account or a role change takes effect immediately.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := parseToken(s.cfg.RefreshSecret, refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return s.issuePair(user)
}

// ParseAccess validates an access token and returns its claims.
func (s *Service) ParseAccess(raw string) (*Claims, error) {
	return parseToken(s.cfg.AccessSecret, raw)
}

func (s *Service) issuePair(user *model.User) (*TokenPair, error) {
	now := s.now()
	access, err := signToken(s.cfg.AccessSecret, user.ID, user.Role, s.cfg.AccessTTLOrDefault(), now)
	if err != nil {
		return nil, err
	}
	refresh, err := signToken(s.cfg.RefreshSecret, user.ID, user.Role, s.cfg.RefreshTTLOrDefault(), now)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
