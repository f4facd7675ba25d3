package websocket

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomhub/internal/domain"
)

var ErrInvalidToken = errors.New("invalid handshake token")

// Claims is the handshake token payload. The subject is the user id.
type Claims struct {
	Role           domain.Role `json:"role"`
	ConversationID string      `json:"conversation_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier turns an HS256 handshake token into a connection identity.
type TokenVerifier struct {
	secret []byte
	clock  clockwork.Clock
}

func NewTokenVerifier(secret string, clock clockwork.Clock) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), clock: clock}
}

func (v *TokenVerifier) Verify(tokenString string) (domain.Identity, error) {
	if tokenString == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing token", ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	return domain.Identity{
		UserID:         claims.Subject,
		Role:           claims.Role,
		ConversationID: claims.ConversationID,
	}, nil
}

// Issue signs a token for identity that expires after ttl.
func (v *TokenVerifier) Issue(identity domain.Identity, ttl time.Duration) (string, error) {
	now := v.clock.Now()
	claims := Claims{
		Role:           identity.Role,
		ConversationID: identity.ConversationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
