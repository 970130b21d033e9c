package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-rating/internal/model"
	"go-rating/internal/service"
)

const userKey = "user"

// authenticate 解析 "Authorization: Token <key>", 令牌无效时返回 401, 未携带时匿名访问
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		scheme, key, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Token") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		user, err := h.svc.Users.Authenticate(c.Request.Context(), strings.TrimSpace(key))
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			h.writeError(c, err)
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// requireUser 要求已登录
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
