package ginmw

import (
	"context"
	"net/http"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/middleware"
	"github.com/gin-gonic/gin"
)

// Attributes resolves marker M for the structure named by the route parameter
// param, stores Resolved[M] in the request context, and on failure responds
// with the Issues payload (404 for unknown structures, 400 otherwise).
func Attributes[M any](a attributeutils.Analyzer, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		r, err := resolveMeta[M](ctx, a, c.Param(param))
		if err != nil {
			if iss, ok := attributeutils.AsIssues(err); ok {
				status := http.StatusBadRequest
				if attributeutils.HasCode(iss, attributeutils.CodeUnknownStructure) {
					status = http.StatusNotFound
				}
				c.JSON(status, middleware.ErrorPayload(iss))
				c.Abort()
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(middleware.ContextWithResolved(ctx, r))
		c.Next()
	}
}

// GetResolved fetches Resolved[M] from gin.Context.
func GetResolved[M any](c *gin.Context) (attributeutils.Resolved[M], bool) {
	return middleware.ResolvedFromContext[M](c.Request.Context())
}

// resolveMeta keeps origin and provenance when the analyzer is a bare engine;
// decorated analyzers resolve the value only.
func resolveMeta[M any](ctx context.Context, a attributeutils.Analyzer, subject any) (attributeutils.Resolved[M], error) {
	if e, ok := a.(*attributeutils.Engine); ok {
		return attributeutils.ResolveWithMeta[M](ctx, e, subject)
	}
	m, err := attributeutils.Resolve[M](ctx, a, subject)
	if err != nil {
		return attributeutils.Resolved[M]{}, err
	}
	return attributeutils.Resolved[M]{Value: m}, nil
}
