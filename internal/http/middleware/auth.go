package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Claims is the bearer token payload. Username becomes the caller identity
// that owns plan runs and submits feedback.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

var errNoIdentity = errors.New("token carries no username or subject")

// CreateToken signs an HS256 token for username valid for ttl.
func CreateToken(secret []byte, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyToken parses and validates an HS256 token.
func VerifyToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.Username == "" {
		claims.Username = claims.Subject
	}
	if claims.Username == "" {
		return nil, errNoIdentity
	}
	return claims, nil
}

// BearerAuth sets the "userID" context value from a valid Authorization
// bearer token. Requests without a token pass through and fall back to the
// X-User-ID header downstream. An empty secret disables the middleware.
//
// A token that is present but invalid is rejected with 401.
func BearerAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		h := strings.TrimSpace(c.GetHeader("Authorization"))
		if h == "" {
			c.Next()
			return
		}
		scheme, raw, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "malformed authorization header")
			return
		}
		claims, err := VerifyToken(secret, strings.TrimSpace(raw))
		if err != nil {
			lg := LoggerFrom(c)
			lg.Debug().Err(err).Msg("bearer token rejected")
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set("userID", claims.Username)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="seat-planner"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
