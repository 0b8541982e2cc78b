package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

const identityKey = "identity"

// Claims carry the identity-provider user id in the subject.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID string
	Name   string
}

type Verifier struct {
	secret []byte
	cookie string
}

// NewVerifier signs and checks HS256 tokens. An empty secret gets a random
// per-process key, which only suits local development.
func NewVerifier(secret, cookieName string) *Verifier {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("auth: generate key: %v", err))
		}
		log.Warn().Msg("AUTH_JWT_SECRET not set; using an ephemeral signing key")
	}
	return &Verifier{secret: key, cookie: cookieName}
}

func (v *Verifier) CookieName() string {
	return v.cookie
}

func (v *Verifier) Issue(userID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *Verifier) Parse(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Name: claims.Name}, nil
}

// TokenFromRequest checks the Authorization header, then the auth cookie,
// then the token query parameter used by websocket clients.
func (v *Verifier) TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if v.cookie != "" {
		if cookie, err := r.Cookie(v.cookie); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return r.URL.Query().Get("token")
}

// Middleware resolves the caller's identity when a valid token is present.
// It never aborts; RequireUser does.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := v.TokenFromRequest(c.Request)
		if token != "" {
			identity, err := v.Parse(token)
			if err != nil {
				log.Debug().Err(err).Str("path", c.FullPath()).Msg("rejected auth token")
			} else {
				c.Set(identityKey, identity)
			}
		}
		c.Next()
	}
}

// RequireUser aborts with 401 when no identity was resolved.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}
