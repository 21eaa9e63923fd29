package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// clientIDKey holds the authenticated client, the token's "sub" claim
const clientIDKey = "client_id"

func abortWith(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: msg, Code: code})
}

// JWTAuthMiddleware validates HMAC-signed JWT tokens; an empty issuer skips the iss check.
// Tokens must name the calling client in "sub".
func JWTAuthMiddleware(secret, issuer string) gin.HandlerFunc {
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(issuer))
	}
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		var claims jwt.RegisteredClaims
		token, err := jwt.ParseWithClaims(tokenString, &claims, keyFunc, parserOpts...)
		if err != nil || !token.Valid {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		if claims.Subject == "" {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token has no subject")
			return
		}

		c.Set(clientIDKey, claims.Subject)
		c.Next()
	}
}

const limiterTTL = time.Hour

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      float64
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// GetLimiter gets or creates the limiter for key
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	// Create new limiter
	limiter = rate.NewLimiter(rate.Limit(rl.rps), rl.burst)
	rl.limiters[key] = limiter

	// Drop the limiter after limiterTTL; the next request starts a fresh bucket
	time.AfterFunc(limiterTTL, func() {
		rl.mu.Lock()
		delete(rl.limiters, key)
		rl.mu.Unlock()
	})

	return limiter
}

// RateLimitMiddleware limits each authenticated client, or each IP when
// the route is not behind JWTAuthMiddleware.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if clientID := c.GetString(clientIDKey); clientID != "" {
			key = "client:" + clientID
		}

		if !limiter.GetLimiter(key).Allow() {
			log.Debug().Str("key", key).Msg("Rate limit exceeded")
			abortWith(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
			return
		}

		c.Next()
	}
}

// ErrorHandlerMiddleware turns errors attached with c.Error into a 500
// when the handler did not write a response itself
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil {
			return
		}
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request error")
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error(), Code: "INTERNAL_ERROR"})
		}
	}
}
