package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/ranker/internal/controller"
	"github.com/saxenaaman628/ranker/internal/models"
	"github.com/saxenaaman628/ranker/internal/utils"
)

type Verifier interface {
	Verify(token string) (models.Identity, error)
}

// JWTAuthMiddleware rejects requests without a valid poll token and stores
// the caller's identity under controller.IdentityKey.
func JWTAuthMiddleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.Verify(utils.TokenFromRequest(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(controller.IdentityKey, id)
		c.Next()
	}
}
