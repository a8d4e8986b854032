package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-center-api/internal/middleware"
	"github.com/noah-isme/tutoring-center-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-center-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// authorizedStudentID resolves the path student id and enforces that student
// tokens only touch their own data.
func authorizedStudentID(c *gin.Context) (string, error) {
	studentID := strings.TrimSpace(c.Param("id"))
	if studentID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleStudent && claims.StudentID != studentID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "students may only access their own stats")
	}
	return studentID, nil
}
