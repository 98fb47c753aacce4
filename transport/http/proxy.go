package http

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/movielist/tmdb"
)

func newProxyRequest(c *gin.Context, prefix string) (tmdb.Request, error) {
	var body []byte
	if c.Request.Body != nil {
		bs, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return tmdb.Request{}, err
		}

		body = bs
	}

	return tmdb.Request{
		Method:   c.Request.Method,
		Path:     strings.TrimPrefix(c.Request.URL.Path, prefix),
		RawQuery: c.Request.URL.RawQuery,
		Header:   c.Request.Header.Clone(),
		Body:     body,
	}, nil
}

// ProxyHandler forwards the request to TMDB with prefix stripped and
// writes back the upstream status, headers and body.
func ProxyHandler(endpoint endpoint.Endpoint, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := newProxyRequest(c, prefix)
		if err != nil {
			badRequest(c, err)
			return
		}

		resp, err := endpoint(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}

		response, ok := resp.(*tmdb.Response)
		if !ok {
			fail(c, errors.New("invalid response"))
			return
		}

		header := c.Writer.Header()
		for name, values := range response.Header {
			if name == "Content-Type" {
				continue
			}

			for _, v := range values {
				header.Add(name, v)
			}
		}

		contentType := response.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		c.Data(response.StatusCode, contentType, response.Body)
	}
}

func ImageHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return ProxyHandler(endpoint, "/image.tmdb")
}
