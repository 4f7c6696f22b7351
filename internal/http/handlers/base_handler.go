// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"trainfare/internal/modules/pricing"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeBindError reports request decoding and binding failures.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	details := make([]string, len(verrs))
	for i, fe := range verrs {
		details[i] = formatValidationError(fe)
	}
	writeJSON(c, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: details})
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " failed " + fe.Tag() + " validation"
	}
}

func writePricingError(c *gin.Context, err error) {
	var invalid *pricing.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		writeError(c, http.StatusBadRequest, invalid.Reason)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "upstream timeout")
	case errors.Is(err, pricing.ErrFareService):
		writeError(c, http.StatusBadGateway, pricing.ErrFareService.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "estimate failed", "err", err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
