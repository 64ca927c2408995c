package api

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"furnishop-backend/internal/services"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Message: message})
}

// respondError maps a service error to its status code. Server side
// failures are logged with their cause, which is also echoed in "error".
func respondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	var stock *services.InsufficientStockError
	if errors.As(err, &stock) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: "Insufficient stock for " + stock.ProductName,
			Details: stock,
		})
		return
	}

	message := err.Error()
	var serviceErr *services.Error
	if errors.As(err, &serviceErr) && serviceErr.Message != "" {
		message = serviceErr.Message
	}

	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, Response{Success: false, Message: message})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Message: message})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, Response{Success: false, Message: message})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, Response{Success: false, Message: message})
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Errorf("request failed: %+v", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Message: "Server error", Error: err.Error()})
	}
}

func uploadFromHeader(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// formFile reads a single uploaded file
func formFile(c *gin.Context, field string) (services.Upload, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		return services.Upload{}, false
	}
	return uploadFromHeader(fh), true
}

// formFiles reads every file uploaded under field
func formFiles(c *gin.Context, field string) []services.Upload {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	headers := form.File[field]
	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, uploadFromHeader(fh))
	}
	return uploads
}
