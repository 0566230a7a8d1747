package common

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/umdb-app/umdb/services/source"
)

// StatusFor maps the source error taxonomy to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, source.ErrValidation), errors.Is(err, source.ErrUnsupportedSource):
		return http.StatusBadRequest
	case errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, source.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, source.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes {"error": msg}. Internal errors are logged and not echoed.
func AbortWithError(c *gin.Context, err error) {
	code := StatusFor(err)
	msg := err.Error()
	l := log.WithError(err).WithFields(log.Fields{
		"path":   c.FullPath(),
		"status": code,
	})
	if code == http.StatusInternalServerError {
		l.Error("request failed")
		msg = http.StatusText(code)
	} else {
		l.Warn("request rejected")
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

func ParseUUID(c *gin.Context, param string) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Param(param))
	if err != nil {
		return uuid.Nil, source.Invalid("invalid %v %q", param, c.Param(param))
	}
	return id, nil
}

func ParseSource(tag string) (source.Source, error) {
	if strings.TrimSpace(tag) == "" {
		return "", source.Invalid("source is required")
	}
	return source.ParseSource(tag)
}

// ParseYear reads an optional year query parameter.
func ParseYear(c *gin.Context) (*int, error) {
	y := strings.TrimSpace(c.Query("year"))
	if y == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(y)
	if err != nil {
		return nil, source.Invalid("invalid year %q", y)
	}
	return &v, nil
}
