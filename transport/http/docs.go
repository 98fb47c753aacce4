package http

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	httpswagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.yaml
var openapiSpecYaml []byte

func OpenAPIHandler(c *gin.Context) {
	c.Data(http.StatusOK, "application/x-yaml", openapiSpecYaml)
}

func SwaggerHandler() gin.HandlerFunc {
	return gin.WrapH(httpswagger.Handler(
		httpswagger.URL("/docs/openapi.yaml"),
	))
}
