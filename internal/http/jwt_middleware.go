package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"diet-coach/internal/domain"
	"diet-coach/internal/service"
)

const authSessionKey = "auth_session"

// SessionAuthMiddleware valida el access token, exige que su sesión siga viva
// y guarda la domain.Session en el contexto. EventSource no puede mandar
// headers, así que también acepta ?access_token=.
func SessionAuthMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			c.Abort()
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		session, err := jwtSvc.SessionFromAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(authSessionKey, session)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return ""
		}
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return strings.TrimSpace(c.Query("access_token"))
}

// GetSession obtiene la sesión autenticada desde el contexto.
func GetSession(c *gin.Context) (*domain.Session, bool) {
	val, ok := c.Get(authSessionKey)
	if !ok {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok && session != nil
}
