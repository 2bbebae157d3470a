package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/todoc/internal/domain/auth"
	apperrors "github.com/yanqian/todoc/pkg/errors"
)

// authMiddleware inspects the bearer token and forwards it on the request
// context so upstream calls run as the caller.
func authMiddleware(svc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeUnauthorized, "로그인이 필요해요.", err))
			return
		}
		claims, err := svc.Inspect(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrMissingToken) || apperrors.IsCode(err, apperrors.CodeUnauthorized) {
				abortWithError(c, NewHTTPError(http.StatusUnauthorized, apperrors.CodeUnauthorized, apperrors.MessageOf(err), err))
				return
			}
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "auth_failed", errMessage(err), err))
			return
		}
		setClaims(c, claims)
		c.Request = c.Request.WithContext(auth.WithToken(c.Request.Context(), token))
		c.Next()
	}
}
