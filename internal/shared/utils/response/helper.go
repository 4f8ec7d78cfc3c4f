package response

import (
	"ticketly/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// Success writes a success envelope with the given status code and payload.
func Success(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

// Error maps a service error onto the envelope using the shared taxonomy.
func Error(c *gin.Context, err error) {
	RespondJSON(c, "error", apperrors.HTTPStatus(err), apperrors.MessageOf(err), nil, nil)
}
