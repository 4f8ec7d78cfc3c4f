package middleware

import (
	"strings"

	"ticketly/internal/shared/apperrors"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Caller roles as carried in access-token claims. Identity issuance is an
// external collaborator; this package only verifies.
const (
	RoleUser      = "USER"
	RoleOrganizer = "ORGANIZER"
	RoleAdmin     = "ADMIN"
)

// Context keys populated by JWTAuth
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

// JWTAuth creates a JWT authentication middleware
func JWTAuth() gin.HandlerFunc {
	return JWTAuthWithConfig(config.Load())
}

// JWTAuthWithConfig creates a JWT authentication middleware with config
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.Unauthorized("authorization header is required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, apperrors.Unauthorized("authorization header format must be Bearer {token}"))
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			response.Error(c, apperrors.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
				response.Error(c, apperrors.Unauthorized("invalid token type"))
				c.Abort()
				return
			}
			c.Set(ContextUserID, claims["user_id"])
			c.Set(ContextUserEmail, claims["email"])
			c.Set(ContextUserRole, claims["role"])
		}

		c.Next()
	}
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextUserRole)
		if !exists {
			response.Error(c, apperrors.Unauthorized("user role not found in context"))
			c.Abort()
			return
		}

		hasRole := false
		for _, role := range requiredRoles {
			if userRole.(string) == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			response.Error(c, apperrors.Forbidden("insufficient permissions"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(RoleAdmin)
}

// SubjectID extracts the verified caller identity set by JWTAuth.
func SubjectID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, apperrors.Unauthorized("user not authenticated")
	}
	str, ok := raw.(string)
	if !ok {
		return uuid.Nil, apperrors.Unauthorized("invalid subject claim")
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, apperrors.Unauthorized("invalid subject claim")
	}
	return id, nil
}

// SubjectRole returns the caller's role, empty when unauthenticated.
func SubjectRole(c *gin.Context) string {
	raw, exists := c.Get(ContextUserRole)
	if !exists {
		return ""
	}
	if role, ok := raw.(string); ok {
		return role
	}
	return ""
}
