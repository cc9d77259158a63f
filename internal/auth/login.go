// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

// PasswordCost is the bcrypt cost used for stored password hashes.
const PasswordCost = 12

// HashPassword returns the bcrypt hash stored in users.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// UserStore loads users for login and token resolution.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Authenticator verifies email/password logins and issues tokens.
type Authenticator struct {
	users   UserStore
	tokens  *JWTManager
	limiter *LoginLimiter
}

// NewAuthenticator creates an authenticator. A nil limiter disables throttling.
func NewAuthenticator(users UserStore, tokens *JWTManager, limiter *LoginLimiter) *Authenticator {
	return &Authenticator{users: users, tokens: tokens, limiter: limiter}
}

// Login checks the credentials and returns a signed token for the user.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
// Clients over their attempt budget get ErrLoginThrottled before any lookup.
func (a *Authenticator) Login(ctx context.Context, clientIP, email, password string) (string, *models.User, error) {
	if a.limiter != nil && !a.limiter.Allow(clientIP) {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		return "", nil, ErrLoginThrottled
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return "", nil, ErrNoCredentials
	}

	user, err := a.users.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrUserNotFound) {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		logging.Ctx(ctx).Info().Str("client_ip", clientIP).Msg("Login rejected")
		return "", nil, ErrInvalidCredentials
	}

	token, err := a.tokens.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return token, user, nil
}

// LoginLimiter implements per-IP rate limiting of login attempts.
type LoginLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLoginLimiter allows perMinute attempts per client IP, refilled evenly.
func NewLoginLimiter(perMinute int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &LoginLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idle:     time.Hour,
	}
}

// Allow consumes one attempt for ip.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// cleanup removes limiters that have been idle longer than l.idle.
func (l *LoginLimiter) cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	threshold := now.Add(-l.idle)
	for ip, entry := range l.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(l.limiters, ip)
			removed++
		}
	}
	return removed
}

// Serve prunes idle limiters every five minutes until ctx is done.
func (l *LoginLimiter) Serve(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if n := l.cleanup(now); n > 0 {
				logging.Debug().Int("removed", n).Msg("Pruned idle login limiters")
			}
		}
	}
}

// String implements fmt.Stringer for the supervisor.
func (l *LoginLimiter) String() string {
	return "login-limiter"
}
