package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/auth"
)

const actorKey = "actor"

type TokenValidator interface {
	Validate(token string) (*domain.Claims, error)
}

// Authenticate requires a valid bearer token and stores the caller as a
// domain.Actor on the context.
func Authenticate(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := v.Validate(strings.TrimSpace(token))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(actorKey, domain.Actor{
			UserID:    claims.UserID,
			Role:      claims.Role,
			IP:        c.ClientIP(),
			RequestID: GetRequestID(c),
		})
		c.Next()
	}
}

// GetActor returns the authenticated caller. Handlers behind Authenticate
// can rely on it being set.
func GetActor(c *gin.Context) domain.Actor {
	a, _ := actor(c)
	return a
}

func actor(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	a, ok := v.(domain.Actor)
	return a, ok
}
