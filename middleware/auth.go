package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/reachforge/puppet/common"
)

const AdminIDKey = "admin_id"

// RequireAdmin guards the admin control plane. Tokens are HS256 bearer
// tokens whose claims must carry role=admin; the subject is exposed to
// handlers as the acting admin id for audit rows.
func RequireAdmin(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.APIError{Message: "missing bearer token"})
			return
		}

		adminID, err := verifyAdminToken(strings.TrimPrefix(h, "Bearer "), key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.APIError{Message: "unauthorized"})
			return
		}

		c.Set(AdminIDKey, adminID)
		c.Next()
	}
}

func verifyAdminToken(tokenStr string, key []byte) (string, error) {
	t, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil || !t.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	if role, _ := claims["role"].(string); role != "admin" {
		return "", errors.New("admin role required")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}
