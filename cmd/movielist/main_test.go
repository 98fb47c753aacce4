package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/flarexio/core/model"
	"github.com/flarexio/movielist"
	"github.com/flarexio/movielist/conf"
	"github.com/flarexio/movielist/transport/pubsub"
)

type movielistTestSuite struct {
	suite.Suite
	cfg  *conf.Config
	tmdb *httptest.Server
	app  *application
}

func (suite *movielistTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	conf.Path = "../.."
	conf.Port = 8080

	cfg, err := conf.LoadConfig()
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.tmdb = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if !strings.HasPrefix(r.URL.Path, "/3/movie/") {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false}`))
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/3/movie/")
		w.Write([]byte(`{"id":` + id + `,"title":"Movie ` + id + `"}`))
	}))

	cfg.Persistence.InMem = true
	cfg.TMDB.API.URI = suite.tmdb.URL
	cfg.TMDB.Image.URI = suite.tmdb.URL

	app, err := newApplication(cfg, pubsub.NopPublisher(), prometheus.NewRegistry(), zap.NewNop())
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.cfg = cfg
	suite.app = app
}

func (suite *movielistTestSuite) TearDownSuite() {
	suite.app.Close()
	suite.tmdb.Close()
}

func (suite *movielistTestSuite) do(method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.app.router.ServeHTTP(w, req)
	return w
}

func (suite *movielistTestSuite) TestConfig() {
	suite.Equal("movielist", suite.cfg.Name)
	suite.Equal(3, suite.cfg.Resilience.Proxy.Retry.MaxAttempts)
	suite.Equal(5, suite.cfg.Resilience.List.Retry.MaxAttempts)
}

func (suite *movielistTestSuite) TestGenerateSampleData() {
	ctx := context.WithValue(context.Background(), model.Logger, zap.NewNop())

	l, err := movielist.GenerateSampleData(ctx, suite.app.svc)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	w := suite.do(http.MethodGet, "/tmdb/4/list/"+jsonNumber(l.ID), "")
	suite.Equal(http.StatusOK, w.Code)

	var resp struct {
		Name    string           `json:"name"`
		Results []map[string]any `json:"results"`
	}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("My Cool List", resp.Name)
	suite.Len(resp.Results, 3)
	suite.Equal("Movie 940721", resp.Results[0]["title"])
}

func (suite *movielistTestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", "")
	suite.Equal(http.StatusOK, w.Code)

	var resp struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("UP", resp.Status)
	suite.Equal("sqlite", resp.Components["persistence"])
	suite.Equal("closed", resp.Components["circuitBreakerProxy"])
}

func (suite *movielistTestSuite) TestProxy() {
	w := suite.do(http.MethodGet, "/tmdb/3/movie/550", "")
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"id":550,"title":"Movie 550"}`, w.Body.String())
}

func (suite *movielistTestSuite) TestMetrics() {
	suite.do(http.MethodGet, "/tmdb/3/movie/550", "")

	w := suite.do(http.MethodGet, "/metrics", "")
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "movielist_resilience_calls_total")
}

func jsonNumber(id int64) string {
	bs, _ := json.Marshal(id)
	return string(bs)
}

func TestMovieListTestSuite(t *testing.T) {
	suite.Run(t, new(movielistTestSuite))
}
