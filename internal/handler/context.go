package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/studysync/studysync-api/internal/middleware"
	"github.com/studysync/studysync-api/internal/models"
)

// currentClaims pulls the authenticated user's claims off the request context.
func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claimsValue, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := claimsValue.(*models.JWTClaims)
	return claims, ok
}
