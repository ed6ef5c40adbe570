package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/safestep-care/safestep-service/internal/config"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/utils"
)

const (
	sessionUserIDKey = "uid"
	sessionRoleKey   = "role"
)

// SessionAuthMiddleware authenticates requests with a signed session cookie
type SessionAuthMiddleware struct {
	userRepo repositories.UserRepository
	logger   utils.Logger
}

func NewSessionAuthMiddleware(userRepo repositories.UserRepository, logger utils.Logger) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{
		userRepo: userRepo,
		logger:   logger,
	}
}

// SessionStore builds the cookie store the router mounts before any
// authenticated route group.
func SessionStore(cfg config.SessionConfig) gin.HandlerFunc {
	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: cfg.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(cfg.Name, store)
}

// AuthMiddleware rejects requests without a valid session and loads the
// account into the request context. Deactivated accounts are rejected even
// when their cookie is still valid.
func (m *SessionAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		rawID := session.Get(sessionUserIDKey)
		if rawID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authentication required",
			})
			return
		}

		userID, ok := rawID.(uint)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid session",
			})
			return
		}

		user, err := m.userRepo.GetByID(c.Request.Context(), nil, userID)
		if err != nil || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid session",
			})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Account is disabled",
			})
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user_role", user.Role)
		c.Next()
	}
}

// RequireRoleMiddleware restricts a route group to the given roles
func (m *SessionAuthMiddleware) RequireRoleMiddleware(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawRole, exists := c.Get("user_role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authentication required",
			})
			return
		}

		role := rawRole.(models.UserRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "Insufficient permissions",
		})
	}
}

// establishSession writes the account into the session cookie after login
func establishSession(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionRoleKey, string(user.Role))
	return session.Save()
}

// clearSession drops the session cookie on logout
func clearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}
