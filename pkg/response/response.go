package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gearstack/cmms-api/internal/models"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
)

// JSON sends a success envelope with optional pagination metadata.
// The envelope contract is {status, data, pagination?}.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination) {
	c.Header("Cache-Control", "no-store")
	body := gin.H{"status": "success", "data": data}
	if pagination != nil {
		body["pagination"] = pagination
	}
	c.JSON(status, body)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error envelope {status: "error", message, code} with any
// error details flattened alongside (e.g. currentStatus, allowedStatuses).
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	body := gin.H{"status": "error", "message": appErr.Message, "code": appErr.Code}
	for key, value := range appErr.Details {
		body[key] = value
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, body)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
