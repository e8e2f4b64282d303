package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ipxlabs/rts/internal/config"
)

// authMiddleware 解析调用者身份并写入上下文。
// jwt模式校验Bearer令牌的HMAC签名并取sub声明；
// header模式直接信任X-Caller头，仅用于本地联调。
func authMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var caller string

		switch cfg.Mode {
		case "header":
			caller = c.GetHeader("X-Caller")
		default:
			token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if token == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少访问令牌"})
				return
			}
			subject, err := parseSubject(token, cfg.JwtSecret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的访问令牌"})
				return
			}
			caller = subject
		}

		if caller == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无法识别调用者身份"})
			return
		}

		c.Set("caller", caller)
		c.Next()
	}
}

// parseSubject 校验HMAC签名并提取sub声明
func parseSubject(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	return claims.GetSubject()
}
