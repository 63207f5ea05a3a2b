package httpapi

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const subjectKey = "subject"

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// bearerAuth rejects requests without a valid token. It is a no-op when no
// secret key is configured.
func (s *Server) bearerAuth() gin.HandlerFunc {
	secret := []byte(s.opts.SecretKey)
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		header := c.GetHeader(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		sub, err := auth.ParseToken(token, secret)
		if err != nil {
			s.logger.Debug(c.Request.Context(), "token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(subjectKey, sub)
		c.Next()
	}
}

// formOverhead is the room left for task fields and encoding around the
// attachment bytes.
const formOverhead = 1 << 20

// maxBodySize is the largest request body accepted for contentType. Form
// bodies carry the attachment as raw bytes; anything else is decoded as JSON,
// where it is base64-encoded.
func maxBodySize(contentType string, maxAttachment int64) int64 {
	switch contentType {
	case binding.MIMEMultipartPOSTForm, binding.MIMEPOSTForm:
		return maxAttachment + formOverhead
	default:
		return int64(base64.StdEncoding.EncodedLen(int(maxAttachment))) + formOverhead
	}
}

// limitBody caps request bodies to the attachment limit plus form overhead.
func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBodySize(c.ContentType(), s.tasks.MaxAttachmentSize())
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
