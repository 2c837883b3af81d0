package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

const DefaultMaxBodySize int64 = 1 << 20

// BodyLimit rejects bodies that declare more than limit bytes and caps the
// reader for the ones that don't declare a length.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			err := apperrors.InvalidParameter(fmt.Sprintf("request body exceeds %d bytes", limit), nil)
			httputil.RespondWithError(c, err)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
