package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paiban/monthroster/internal/security"
)

// APIKeyNameKey 上下文中已认证密钥名称的键
const APIKeyNameKey = "api_key_name"

// APIKeyAuth 校验 API 密钥。GET 和 HEAD 请求需要读权限，其余需要写权限。
// skip 中的路径不校验。
func APIKeyAuth(store *security.KeyStore, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(c *gin.Context) {
		if skipped[c.Request.URL.Path] || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		raw := security.ExtractAPIKey(c.Request)
		if raw == "" {
			abortAuth(c, http.StatusUnauthorized, "UNAUTHORIZED", "缺少API密钥")
			return
		}
		key, err := store.Validate(raw)
		if err != nil {
			msg := "无效的API密钥"
			if errors.Is(err, security.ErrExpiredAPIKey) {
				msg = "API密钥已过期或已停用"
			}
			abortAuth(c, http.StatusUnauthorized, "UNAUTHORIZED", msg)
			return
		}

		scope := security.ScopeWrite
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			scope = security.ScopeRead
		}
		if !key.HasScope(scope) {
			abortAuth(c, http.StatusForbidden, "FORBIDDEN", "API密钥没有 "+scope+" 权限")
			return
		}

		c.Set(APIKeyNameKey, key.Name)
		c.Next()
	}
}

func abortAuth(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   true,
		"code":    code,
		"message": message,
	})
}
