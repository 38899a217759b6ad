package auth

import (
	"errors"
	"fmt"
	"strings"

	apperrors "arxiv_digest/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// AuthMiddleware accepts HS256 bearer tokens signed with secret. An empty
// secret disables the check.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			apperrors.HandleError(c, apperrors.New401Error("Authorization header is required"))
			return
		}

		claims, err := verifyToken(token, secret)
		if err != nil {
			apperrors.HandleError(c, apperrors.New401Error(err.Error()))
			return
		}

		subject, _ := claims["sub"].(string)
		c.Set("subject", subject)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter since browsers cannot set headers on WebSocket requests.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return c.Query("token")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func verifyToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
