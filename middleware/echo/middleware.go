package echomw

import (
	"context"
	"net/http"

	attributeutils "github.com/bwaidelich/AttributeUtils"
	"github.com/bwaidelich/AttributeUtils/middleware"
	"github.com/labstack/echo/v4"
)

// Attributes resolves marker M for the structure named by the route parameter
// param and stores Resolved[M] in the request context. Failures respond with
// the Issues payload (404 for unknown structures, 400 otherwise).
func Attributes[M any](a attributeutils.Analyzer, param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			r, err := resolveMeta[M](ctx, a, c.Param(param))
			if err != nil {
				if iss, ok := attributeutils.AsIssues(err); ok {
					status := http.StatusBadRequest
					if attributeutils.HasCode(iss, attributeutils.CodeUnknownStructure) {
						status = http.StatusNotFound
					}
					return c.JSON(status, middleware.ErrorPayload(iss))
				}
				return c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
			}
			c.SetRequest(c.Request().WithContext(middleware.ContextWithResolved(ctx, r)))
			return next(c)
		}
	}
}

// GetResolved fetches Resolved[M] from echo.Context.
func GetResolved[M any](c echo.Context) (attributeutils.Resolved[M], bool) {
	return middleware.ResolvedFromContext[M](c.Request().Context())
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
