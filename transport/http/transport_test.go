package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/flarexio/movielist"
	"github.com/flarexio/movielist/conf"
	"github.com/flarexio/movielist/list"
	"github.com/flarexio/movielist/persistence"
	"github.com/flarexio/movielist/resilience"
	"github.com/flarexio/movielist/tmdb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const readAccessKey = "test-read-access-key"

var knownMedia = map[string]string{
	"/3/movie/550":    `{"id":550,"title":"Fight Club"}`,
	"/3/movie/244786": `{"id":244786,"title":"Whiplash"}`,
	"/3/tv/1396":      `{"id":1396,"name":"Breaking Bad"}`,
}

type transportTestSuite struct {
	suite.Suite
	lists list.Repository

	calls    atomic.Int32
	upstream http.HandlerFunc
	tmdb     *httptest.Server

	proxyCfg resilience.Config
	listCfg  resilience.Config
	router   *gin.Engine
}

func (suite *transportTestSuite) SetupSuite() {
	lists, err := persistence.NewListRepository(conf.Persistence{
		Driver: conf.SQLite,
		Name:   "movielist",
		InMem:  true,
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.lists = lists
}

func (suite *transportTestSuite) TearDownSuite() {
	suite.lists.Close()
}

func (suite *transportTestSuite) SetupTest() {
	suite.lists.Truncate()
	suite.calls.Store(0)
	suite.upstream = catalogue

	suite.tmdb = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.calls.Add(1)
		suite.upstream(w, r)
	}))

	suite.proxyCfg = resilience.Config{
		CircuitBreaker: resilience.CircuitBreaker{
			Enabled:                 true,
			MinimumCalls:            5,
			FailureRateThreshold:    50,
			WaitDurationInOpenState: time.Minute,
		},
		Retry:       resilience.Retry{MaxAttempts: 3},
		TimeLimiter: resilience.TimeLimiter{Timeout: 5 * time.Second},
	}

	suite.listCfg = resilience.Config{
		CircuitBreaker: resilience.CircuitBreaker{
			Enabled:                 true,
			MinimumCalls:            5,
			FailureRateThreshold:    50,
			WaitDurationInOpenState: time.Minute,
		},
		Retry:       resilience.Retry{MaxAttempts: 5},
		TimeLimiter: resilience.TimeLimiter{Timeout: 2 * time.Second},
	}

	suite.build()
}

func (suite *transportTestSuite) TearDownTest() {
	suite.tmdb.Close()
}

// build wires the router against the fake TMDB with the current
// resilience configuration.
func (suite *transportTestSuite) build() {
	cfg := conf.TMDB{
		API:     conf.Upstream{URI: suite.tmdb.URL, ReadAccessKey: readAccessKey},
		Image:   conf.Upstream{URI: suite.tmdb.URL},
		Timeout: 10 * time.Second,
	}

	client, err := tmdb.NewClient(cfg, zap.NewNop())
	suite.Require().NoError(err)

	media := tmdb.NewMediaRepository(client, cfg.Cache)

	svc := movielist.NewService(suite.lists, media)

	reg := prometheus.NewRegistry()
	metrics := resilience.NewMetrics(reg)

	proxy := resilience.NewPolicy("proxy", suite.proxyCfg, metrics)
	lists := resilience.NewPolicy("list", suite.listCfg, metrics)

	endpoints := movielist.NewEndpointSet(svc, client).
		WithProxyMiddleware(proxy.Middleware()).
		WithListMiddleware(lists.Middleware())

	suite.router = NewRouter(endpoints, zap.NewNop(), RouterOptions{Gatherer: reg})
}

func catalogue(w http.ResponseWriter, r *http.Request) {
	body, ok := knownMedia[r.URL.Path]
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"status_code":34,"status_message":"The resource you requested could not be found."}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (suite *transportTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		bs, err := json.Marshal(b)
		suite.Require().NoError(err)
		reader = bytes.NewReader(bs)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *transportTestSuite) createList(name string) int64 {
	w := suite.do(http.MethodPost, "/tmdb/4/list", gin.H{
		"name":        name,
		"description": "Hey!",
		"iso_639_1":   "en",
		"visible":     false,
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp CommandResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

func (suite *transportTestSuite) TestProxyRetrySucceeds() {
	var failed atomic.Bool
	var auth, path atomic.Value

	suite.upstream = func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		path.Store(r.URL.Path + "?" + r.URL.RawQuery)

		if failed.CompareAndSwap(false, true) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		catalogue(w, r)
	}

	w := suite.do(http.MethodGet, "/tmdb/3/movie/550?language=en-US", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(knownMedia["/3/movie/550"], w.Body.String())
	suite.Equal("application/json", w.Header().Get("Content-Type"))
	suite.Equal(int32(2), suite.calls.Load())
	suite.Equal("Bearer "+readAccessKey, auth.Load())
	suite.Equal("/3/movie/550?language=en-US", path.Load())
}

func (suite *transportTestSuite) TestProxyRetriesExhausted() {
	suite.upstream = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	w := suite.do(http.MethodGet, "/tmdb/3/movie/550", nil)

	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal("all retries have exhausted", w.Body.String())
	suite.Equal(int32(3), suite.calls.Load())
}

func (suite *transportTestSuite) TestProxyCircuitOpens() {
	suite.upstream = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	for i := 0; i < 5; i++ {
		w := suite.do(http.MethodGet, "/tmdb/3/movie/550", nil)
		suite.Equal(http.StatusServiceUnavailable, w.Code)
		suite.Equal("all retries have exhausted", w.Body.String())
	}

	for i := 0; i < 5; i++ {
		w := suite.do(http.MethodGet, "/tmdb/3/movie/550", nil)
		suite.Equal(http.StatusServiceUnavailable, w.Code)
		suite.Equal("service is unavailable", w.Body.String())
	}

	suite.Equal(int32(15), suite.calls.Load())

	w := suite.do(http.MethodGet, "/metrics", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `movielist_resilience_calls_total{instance="proxy",outcome="circuit_open"} 5`)
	suite.Contains(w.Body.String(), `movielist_circuit_breaker_state{instance="proxy"} 2`)
}

func (suite *transportTestSuite) TestProxyPassesClientErrors() {
	w := suite.do(http.MethodGet, "/tmdb/3/movie/1", nil)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Contains(w.Body.String(), `"status_code":34`)
	suite.Equal(int32(1), suite.calls.Load())
}

func (suite *transportTestSuite) TestProxyAuthAndAccount() {
	var paths []string
	suite.upstream = func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}

	w := suite.do(http.MethodPost, "/tmdb/4/auth/request_token", `{"redirect_to":"http://localhost"}`)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/tmdb/4/account/abc/favorite/movies", nil)
	suite.Equal(http.StatusOK, w.Code)

	suite.Equal([]string{
		"POST /4/auth/request_token",
		"GET /4/account/abc/favorite/movies",
	}, paths)
}

func (suite *transportTestSuite) TestProxyRateLimited() {
	suite.proxyCfg.RateLimiter = resilience.RateLimiter{
		Enabled:            true,
		LimitForPeriod:     2,
		LimitRefreshPeriod: time.Minute,
	}
	suite.build()

	for i := 0; i < 2; i++ {
		w := suite.do(http.MethodGet, "/tmdb/3/movie/550", nil)
		suite.Equal(http.StatusOK, w.Code)
	}

	w := suite.do(http.MethodGet, "/tmdb/3/movie/550", nil)
	suite.Equal(http.StatusTooManyRequests, w.Code)
	suite.Equal("too many requests", w.Body.String())
	suite.Equal(int32(2), suite.calls.Load())
}

func (suite *transportTestSuite) TestImageProxy() {
	var auth, path atomic.Value
	suite.upstream = func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		path.Store(r.URL.Path)

		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8, 0xff})
	}

	w := suite.do(http.MethodGet, "/image.tmdb/t/p/w500/poster.jpg", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("image/jpeg", w.Header().Get("Content-Type"))
	suite.Equal([]byte{0xff, 0xd8, 0xff}, w.Body.Bytes())
	suite.Equal("/t/p/w500/poster.jpg", path.Load())
	suite.Equal("", auth.Load())
}

func (suite *transportTestSuite) TestCreateAndGetList() {
	id := suite.createList("My Cool List")
	suite.NotZero(id)

	w := suite.do(http.MethodGet, fmt.Sprintf("/tmdb/4/list/%d", id), nil)
	suite.Equal(http.StatusOK, w.Code)

	var l ListDTO
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &l))
	suite.Equal(id, l.ID)
	suite.Equal("My Cool List", l.Name)
	suite.Equal("Hey!", l.Description)
	suite.False(l.Visible)
	suite.Empty(l.Results)
}

func (suite *transportTestSuite) TestCreateListResponse() {
	w := suite.do(http.MethodPost, "/tmdb/4/list", gin.H{"name": "My Cool List"})
	suite.Equal(http.StatusOK, w.Code)

	var resp map[string]any
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(true, resp["success"])
	suite.Equal(float64(StatusCreated), resp["status_code"])
	suite.Equal("The item/record was created successfully.", resp["status_message"])
	suite.Equal("My Cool List", resp["name"])
	suite.NotZero(resp["id"])
}

func (suite *transportTestSuite) TestListsOfAccount() {
	for i := 0; i < 10; i++ {
		suite.createList(fmt.Sprintf("List %d", i))
	}

	w := suite.do(http.MethodGet, "/tmdb/4/account/4bc889XXXXXXXXXX/lists", nil)
	suite.Equal(http.StatusOK, w.Code)

	var lists ListsDTO
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &lists))
	suite.Equal(1, lists.Page)
	suite.Equal(1, lists.TotalPages)
	suite.Equal(10, lists.TotalResults)
	suite.Len(lists.Results, 10)
	suite.Equal(int32(0), suite.calls.Load())
}

func (suite *transportTestSuite) TestUpdateList() {
	id := suite.createList("My Cool List")

	w := suite.do(http.MethodPut, fmt.Sprintf("/tmdb/4/list/%d", id), gin.H{
		"name":        "My Cooler List",
		"description": "Hey Hey!",
		"visible":     true,
	})
	suite.Equal(http.StatusOK, w.Code)

	var resp CommandResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(StatusUpdated, resp.StatusCode)
	suite.Equal("The item/record was updated successfully.", resp.StatusMessage)
	suite.Equal("My Cooler List", resp.Name)
	suite.Equal("Hey Hey!", resp.Description)
	suite.True(resp.Visible)
}

func (suite *transportTestSuite) TestDeleteList() {
	id := suite.createList("My Cool List")

	w := suite.do(http.MethodDelete, fmt.Sprintf("/tmdb/4/%d", id), nil)
	suite.Equal(http.StatusOK, w.Code)

	var resp CommandResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(StatusDeleted, resp.StatusCode)
	suite.Equal("The item/record was deleted successfully.", resp.StatusMessage)
	suite.Equal(id, resp.ID)

	w = suite.do(http.MethodGet, fmt.Sprintf("/tmdb/4/list/%d", id), nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "does not exist")

	w = suite.do(http.MethodDelete, fmt.Sprintf("/tmdb/4/%d", id), nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodDelete, "/tmdb/4/424242", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(StatusDeleted, resp.StatusCode)
	suite.Equal(int64(424242), resp.ID)
}

func (suite *transportTestSuite) TestAddAndRemoveItems() {
	id := suite.createList("My Cool List")
	path := fmt.Sprintf("/tmdb/4/list/%d/items", id)

	w := suite.do(http.MethodPost, path, gin.H{
		"items": []gin.H{
			{"media_id": 550, "media_type": "movie"},
			{"media_id": 244786, "media_type": "movie"},
			{"media_id": 1396, "media_type": "tv"},
		},
	})
	suite.Equal(http.StatusOK, w.Code)

	var resp CommandResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Results, 3)
	suite.Equal(3, resp.NumberOfItems)
	suite.Equal(int64(550), resp.Results[0].MediaID)
	suite.Equal("Fight Club", resp.Results[0].APIData["title"])
	suite.Equal("Breaking Bad", resp.Results[2].APIData["name"])

	w = suite.do(http.MethodDelete, path, gin.H{
		"items": []gin.H{
			{"media_id": 550, "media_type": "movie"},
			{"media_id": 1396, "media_type": "tv"},
		},
	})
	suite.Equal(http.StatusOK, w.Code)

	resp = CommandResponse{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Results, 1)
	suite.Equal(int64(244786), resp.Results[0].MediaID)

	w = suite.do(http.MethodGet, fmt.Sprintf("/tmdb/4/list/%d", id), nil)
	suite.Equal(http.StatusOK, w.Code)

	var item map[string]any
	var l struct {
		Results []map[string]any `json:"results"`
	}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &l))
	suite.Len(l.Results, 1)
	item = l.Results[0]
	suite.Equal(float64(244786), item["media_id"])
	suite.Equal("movie", item["media_type"])
	suite.Equal("Whiplash", item["title"])
}

func (suite *transportTestSuite) TestAddItemsMediaTypeCase() {
	id := suite.createList("My Cool List")

	w := suite.do(http.MethodPost, fmt.Sprintf("/tmdb/4/list/%d/items", id), gin.H{
		"items": []gin.H{{"media_id": 550, "media_type": "Movie"}},
	})
	suite.Equal(http.StatusOK, w.Code)

	var resp CommandResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp.Results, 1)
	suite.Equal("movie", resp.Results[0].MediaType)

	w = suite.do(http.MethodPost, fmt.Sprintf("/tmdb/4/list/%d/items", id), gin.H{
		"items": []gin.H{{"media_id": 550, "media_type": "person"}},
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "invalid media item")
}

func (suite *transportTestSuite) TestBadRequests() {
	id := suite.createList("My Cool List")

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/tmdb/4/list", gin.H{"name": ""}},
		{http.MethodPost, "/tmdb/4/list", `{"name":`},
		{http.MethodGet, "/tmdb/4/list/4242", nil},
		{http.MethodGet, "/tmdb/4/list/abc", nil},
		{http.MethodPut, "/tmdb/4/list/4242", gin.H{"name": "x"}},
		{http.MethodPost, fmt.Sprintf("/tmdb/4/list/%d/items", id), gin.H{
			"items": []gin.H{{"media_id": 1, "media_type": "movie"}},
		}},
		{http.MethodPost, fmt.Sprintf("/tmdb/4/list/%d/items", id), gin.H{
			"items": []gin.H{{"media_id": 550, "media_type": "person"}},
		}},
		{http.MethodPost, "/tmdb/4/list/4242/items", gin.H{
			"items": []gin.H{{"media_id": 550, "media_type": "movie"}},
		}},
	}

	for _, tt := range tests {
		w := suite.do(tt.method, tt.path, tt.body)
		suite.Equal(http.StatusBadRequest, w.Code, tt.method+" "+tt.path)
	}

	// the movie check asks for the right media type
	w := suite.do(http.MethodPost, fmt.Sprintf("/tmdb/4/list/%d/items", id), gin.H{
		"items": []gin.H{{"media_id": 1396, "media_type": "movie"}},
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "no such movie/tv")

	// business failures never trip the breaker
	w = suite.do(http.MethodGet, fmt.Sprintf("/tmdb/4/list/%d", id), nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *transportTestSuite) TestListCircuitOpens() {
	// stored directly so the breaker only sees the failing calls
	l := list.NewMovieList("My Cool List", "", "en", false, "")
	suite.Require().NoError(suite.lists.Store(context.Background(), l))

	path := fmt.Sprintf("/tmdb/4/list/%d/items", l.ID)
	body := gin.H{"items": []gin.H{{"media_id": 550, "media_type": "movie"}}}

	suite.upstream = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	for i := 0; i < 5; i++ {
		w := suite.do(http.MethodPost, path, body)
		suite.Equal(http.StatusServiceUnavailable, w.Code)
		suite.Equal("all retries have exhausted", w.Body.String())
	}

	w := suite.do(http.MethodPost, path, body)
	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal("service is unavailable", w.Body.String())

	suite.Equal(int32(25), suite.calls.Load())
}

func (suite *transportTestSuite) TestListTimeout() {
	suite.listCfg.TimeLimiter.Timeout = 200 * time.Millisecond
	suite.build()

	id := suite.createList("My Cool List")

	suite.upstream = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
			catalogue(w, r)
		}
	}

	start := time.Now()
	w := suite.do(http.MethodPost, fmt.Sprintf("/tmdb/4/list/%d/items", id), gin.H{
		"items": []gin.H{{"media_id": 550, "media_type": "movie"}},
	})

	suite.Equal(http.StatusRequestTimeout, w.Code)
	suite.Equal("Request timed out", w.Body.String())
	suite.Less(time.Since(start), 5*time.Second)
}

func (suite *transportTestSuite) TestDocsAndHealth() {
	w := suite.do(http.MethodGet, "/docs/openapi.yaml", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.True(strings.HasPrefix(w.Body.String(), "openapi: 3.0.3"))

	w = suite.do(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"status":"UP"}`, w.Body.String())
}

func (suite *transportTestSuite) TestCORS() {
	req := httptest.NewRequest(http.MethodOptions, "/tmdb/4/list", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTransportTestSuite(t *testing.T) {
	suite.Run(t, new(transportTestSuite))
}
