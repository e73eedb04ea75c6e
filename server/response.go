package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/riskintel/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err as an error envelope. Errors that are not
// *AppError are normalized first.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.Normalize(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, appErr.ToResponse())
}

// RespondOK sends 200 wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondNoContent sends 204.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
