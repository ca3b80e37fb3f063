// Package token issues and resolves short-lived log read tokens.
//
// A token is a random string of letters bound to one channel. With the
// default length of 10 it carries about 57 bits; the minimum of 7 gives
// about 40. That is enough for a credential that lives a few minutes
// and unlocks one channel's recent log, and is not meant to withstand a
// targeted online guessing campaign. Collisions are not checked for.
package token

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rcliao/logbot/internal/store"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// MinLength is the shortest token Issue will produce.
	MinLength     = 7
	DefaultLength = 10
	DefaultTTL    = 5 * time.Minute
)

// Authority binds tokens to channels in a TokenStore.
type Authority struct {
	tokens store.TokenStore
	ttl    time.Duration
	length int
}

// New returns an Authority issuing tokens of length letters valid for
// ttl. Zero values select the defaults; lengths below MinLength are
// raised to it.
func New(tokens store.TokenStore, ttl time.Duration, length int) *Authority {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if length == 0 {
		length = DefaultLength
	}
	if length < MinLength {
		length = MinLength
	}
	return &Authority{tokens: tokens, ttl: ttl, length: length}
}

// Issue creates a token for channel.
func (a *Authority) Issue(ctx context.Context, channel string) (string, error) {
	tok, err := randomString(a.length)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	if err := a.tokens.PutToken(ctx, tok, channel, a.ttl); err != nil {
		return "", err
	}
	return tok, nil
}

// Resolve returns the channel tok was issued for. ok is false for
// tokens that were never issued and for expired ones alike.
func (a *Authority) Resolve(ctx context.Context, tok string) (channel string, ok bool, err error) {
	if tok == "" {
		return "", false, nil
	}
	return a.tokens.GetToken(ctx, tok)
}

// randomString draws n letters uniformly by rejecting bytes that would
// bias the modulo.
func randomString(n int) (string, error) {
	const limit = 256 - 256%len(alphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
