package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"agora/internal/models"
	"agora/internal/rbac"
	"agora/internal/services"
	"agora/internal/tokens"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const CheckUserKey = "user"
const ActorKey = "actor"
const SessionUserKey = "user_id"

// UserLoader fetches the stored user behind a session or token.
type UserLoader interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// AuthRequired rejects requests without a signed-in user.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole gates a route group on a role check such as Guard.RequireAdmin. It runs
// after LoadUser; denials are reported without naming the check.
func RequireRole(check func(*rbac.Actor) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := check(CurrentActor(c))
		if err == nil {
			c.Next()
			return
		}
		_ = c.Error(err)
		var authErr *rbac.AuthError
		if errors.As(err, &authErr) && errors.Is(authErr.Kind, rbac.ErrUnauthenticated) {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHENTICATED", authErr.PublicMessage())
			return
		}
		abortJSON(c, http.StatusForbidden, "FORBIDDEN", "you do not have permission to perform this action")
	}
}

// LoadUser resolves the requester from a bearer token or the session cookie. Role and
// trust score always come from the stored user, never from the token.
func LoadUser(users UserLoader, issuer tokens.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			scheme, raw, ok := strings.Cut(authz, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") {
				abortJSON(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid authorization header")
				return
			}
			claims, err := issuer.Parse(strings.TrimSpace(raw))
			if err != nil {
				abortJSON(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				abortJSON(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
				return
			}
			user, err := users.Get(c.Request.Context(), userID)
			if err != nil {
				log.Info("token for unknown user", zap.Uint("user_id", userID), zap.Error(err))
				abortJSON(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
				return
			}
			setUser(c, user)
			c.Next()
			return
		}

		session := sessions.Default(c)
		if userID, ok := session.Get(SessionUserKey).(uint); ok && userID != 0 {
			user, err := users.Get(c.Request.Context(), userID)
			switch {
			case err == nil:
				setUser(c, user)
			case errors.Is(err, services.ErrNotFound):
				// stale cookie for a user that no longer exists
				session.Delete(SessionUserKey)
				_ = session.Save()
			default:
				log.Warn("load session user", zap.Uint("user_id", userID), zap.Error(err))
			}
		}
		c.Next()
	}
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(CheckUserKey, user)
	c.Set(ActorKey, user.Actor())
}

// CurrentUser returns the signed-in user, or nil for guests.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// CurrentActor returns the requester's rbac identity; nil means guest.
func CurrentActor(c *gin.Context) *rbac.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(*rbac.Actor); ok {
			return actor
		}
	}
	return nil
}
