package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/middleware"
	"arqueo-backend/internal/models"
	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: data})
}

func created(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, models.Envelope{Success: true, Data: data, Message: message})
}

func page(c *gin.Context, data interface{}, p models.Pagination) {
	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: data, Pagination: &p})
}

func message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, models.Envelope{Success: true, Message: msg})
}

// fail hands err to middleware.ErrorHandler.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// attachmentWriter sends the download headers with the first byte written.
// Until then the response is untouched and a failure still gets the JSON
// error envelope.
type attachmentWriter struct {
	c           *gin.Context
	contentType string
	filename    string
}

func attachment(c *gin.Context, contentType, filename string) *attachmentWriter {
	return &attachmentWriter{c: c, contentType: contentType, filename: filename}
}

func (w *attachmentWriter) Write(p []byte) (int, error) {
	if !w.c.Writer.Written() {
		w.c.Header("Content-Type", w.contentType)
		w.c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, w.filename))
		w.c.Status(http.StatusOK)
	}
	return w.c.Writer.Write(p)
}

func badBody() error {
	return apperr.Validation("invalid request body", nil)
}

func bindBody(c *gin.Context) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, badBody()
	}
	return body, nil
}

// caller returns the authenticated user, reporting failures itself.
func caller(c *gin.Context) (string, bool) {
	owner, err := middleware.UserID(c)
	if err != nil {
		fail(c, err)
		return "", false
	}
	return owner, true
}

func indexParam(c *gin.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		return 0, apperr.Validation("index must be a non-negative integer", map[string]string{"index": "invalid"})
	}
	return idx, nil
}
