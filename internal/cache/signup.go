package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a signup session or ticket is missing or expired.
var ErrSessionNotFound = errors.New("session not found")

// signupTTL bounds how long a client has between signup steps.
const signupTTL = 15 * time.Minute

// wsTicketTTL bounds how long a websocket ticket stays redeemable.
const wsTicketTTL = 30 * time.Second

// SignupSession holds step-one signup data while the client completes step two.
type SignupSession struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"user_name"`
}

func signupKey(token string) string {
	return "signup:" + token
}

// StoreSignupSession persists step-one data under a fresh token and returns the token.
func StoreSignupSession(ctx context.Context, rdb *redis.Client, session SignupSession) (string, error) {
	if rdb == nil {
		return "", errors.New("redis unavailable")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return "", err
	}
	token := uuid.New().String()
	if err := rdb.Set(ctx, signupKey(token), payload, signupTTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// TakeSignupSession atomically fetches and deletes step-one data for the token.
// Returns ErrSessionNotFound when the token is unknown or expired.
func TakeSignupSession(ctx context.Context, rdb *redis.Client, token string) (*SignupSession, error) {
	if rdb == nil {
		return nil, errors.New("redis unavailable")
	}
	payload, err := rdb.GetDel(ctx, signupKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var session SignupSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func wsTicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}

// MintWSTicket issues a short-lived single-use websocket ticket for the user.
// Browsers cannot set an Authorization header on the upgrade request, so the
// client fetches a ticket over the authenticated API and passes it as a query
// parameter instead.
func MintWSTicket(ctx context.Context, rdb *redis.Client, userID uint) (string, error) {
	if rdb == nil {
		return "", errors.New("redis unavailable")
	}
	ticket := uuid.New().String()
	value := strconv.FormatUint(uint64(userID), 10)
	if err := rdb.Set(ctx, wsTicketKey(ticket), value, wsTicketTTL).Err(); err != nil {
		return "", err
	}
	return ticket, nil
}

// RedeemWSTicket consumes a ticket and returns the user it was minted for.
// A ticket can be redeemed exactly once.
func RedeemWSTicket(ctx context.Context, rdb *redis.Client, ticket string) (uint, error) {
	if rdb == nil {
		return 0, errors.New("redis unavailable")
	}
	value, err := rdb.GetDel(ctx, wsTicketKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt ticket payload: %w", err)
	}
	return uint(userID), nil
}
