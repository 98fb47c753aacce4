package tmdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/movielist/conf"
)

var (
	ErrAPIOffline = errors.New("api is offline")
	ErrAPIRequest = errors.New("api request failed")
)

// RequestError is returned when TMDB answers with a server error.
// Client errors (4xx) are regular responses and are passed through.
type RequestError struct {
	StatusCode int
	Body       []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrAPIRequest.Error(), e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *RequestError) Unwrap() error {
	return ErrAPIRequest
}

type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type Client struct {
	apiURI   *url.URL
	imageURI *url.URL
	key      string
	http     *http.Client
	log      *zap.Logger
}

func NewClient(cfg conf.TMDB, log *zap.Logger) (*Client, error) {
	apiURI, err := url.Parse(cfg.API.URI)
	if err != nil {
		return nil, err
	}

	imageURI, err := url.Parse(cfg.Image.URI)
	if err != nil {
		return nil, err
	}

	return &Client{
		apiURI:   apiURI,
		imageURI: imageURI,
		key:      cfg.API.ReadAccessKey,
		http:     &http.Client{Timeout: cfg.Timeout},
		log: log.With(
			zap.String("infra", "tmdb"),
		),
	}, nil
}

// FetchAPI forwards the request to the TMDB api with the configured
// read access key.
// See https://developer.themoviedb.org/reference/intro/getting-started
func (c *Client) FetchAPI(ctx context.Context, req Request) (*Response, error) {
	return c.fetch(ctx, c.apiURI, req, true)
}

// FetchImage forwards the request to the TMDB image api.
// See https://developer.themoviedb.org/docs/image-basics
func (c *Client) FetchImage(ctx context.Context, req Request) (*Response, error) {
	return c.fetch(ctx, c.imageURI, req, false)
}

func (c *Client) fetch(ctx context.Context, base *url.URL, req Request, auth bool) (*Response, error) {
	log := c.log.With(
		zap.String("method", req.Method),
		zap.String("path", req.Path),
	)

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(req.Path, "/")
	u.RawQuery = req.RawQuery

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	r, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	for name, values := range req.Header {
		for _, v := range values {
			r.Header.Add(name, v)
		}
	}

	// The transport negotiates compression itself and decodes the body.
	r.Header.Del("Accept-Encoding")
	r.Header.Del("Authorization")
	r.Header.Del("Content-Length")
	r.Header.Del("Host")
	for _, h := range hopHeaders {
		r.Header.Del(h)
	}

	if auth && c.key != "" {
		r.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(r)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Error("tmdb is offline", zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrAPIOffline, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("tmdb response incomplete", zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrAPIOffline, err.Error())
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		log.Warn("tmdb request failed", zap.Int("status", resp.StatusCode))
		return nil, &RequestError{resp.StatusCode, data}
	}

	header := resp.Header.Clone()
	header.Del("Content-Length")
	for _, h := range hopHeaders {
		header.Del(h)
	}

	log.Debug("tmdb responded", zap.Int("status", resp.StatusCode))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       data,
	}, nil
}
