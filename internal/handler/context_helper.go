package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gearstack/cmms-api/internal/middleware"
	"github.com/gearstack/cmms-api/internal/models"
)

// claimsFromContext extracts the authenticated user's claims. Routes behind
// the JWT middleware always have them; a miss means a wiring bug.
func claimsFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
