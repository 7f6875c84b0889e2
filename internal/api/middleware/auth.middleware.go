package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/platformbuilds/sentra-core/internal/config"
	"github.com/platformbuilds/sentra-core/pkg/cache"
)

const (
	// DefaultTenantID is the fallback tenant ID when none is specified
	DefaultTenantID = ""
)

// SessionClaims are the JWT claims carried by a session token. The token is
// only a pointer into the session cache; the cached session stays the source
// of truth for activated roles.
type SessionClaims struct {
	SessionID string `json:"sid"`
	TenantID  string `json:"tid"`
	UserID    string `json:"uid"`
	jwt.RegisteredClaims
}

// IssueToken mints a signed session token for a freshly activated session.
func IssueToken(jwtConfig config.JWTConfig, sessionID, tenantID, userID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		TenantID:  tenantID,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sentra-core",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(jwtConfig.ExpiryMinutes) * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.Secret))
}

// ParseToken validates a session token and returns its claims.
func ParseToken(jwtConfig config.JWTConfig, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(jwtConfig.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// AuthMiddleware validates the session token and loads the activated session
// from the cache into the request context.
func AuthMiddleware(jwtConfig config.JWTConfig, sessions cache.ValkeyCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicEndpoint(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Authentication required",
			})
			c.Abort()
			return
		}

		claims, err := ParseToken(jwtConfig, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Invalid authentication token",
				"detail": err.Error(),
			})
			c.Abort()
			return
		}

		session, err := sessions.GetSession(c.Request.Context(), claims.SessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Session expired or revoked",
			})
			c.Abort()
			return
		}

		session.LastAccessAt = time.Now()
		// Best effort; a failed refresh must not fail the request.
		_ = sessions.SetSession(c.Request.Context(), session)

		c.Set("session", session)
		c.Set("session_id", session.ID)
		c.Set("user_id", session.UserID)
		c.Set("tenant_id", session.TenantID)

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")

		c.Next()
	}
}

// NoAuthMiddleware stamps anonymous context for deployments that disable
// authentication, keeping downstream handlers uniform.
func NoAuthMiddleware(defaultTenant string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			tenantID = defaultTenant
		}
		c.Set("tenant_id", tenantID)
		c.Set("user_id", "anonymous")
		c.Next()
	}
}

// extractToken gets the session token from various sources
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if sessionToken := c.GetHeader("X-Session-Token"); sessionToken != "" {
		return sessionToken
	}

	if cookie, err := c.Cookie("sentra_session"); err == nil {
		return cookie
	}

	return ""
}

func isPublicEndpoint(method, path string) bool {
	switch path {
	case "/health", "/ready", "/metrics":
		return true
	}
	// Session creation is the login call.
	if method == http.MethodPost && path == "/api/v1/sessions" {
		return true
	}
	return false
}
