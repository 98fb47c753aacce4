package http

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/movielist"
	"github.com/flarexio/movielist/list"
)

var ErrInvalidListID = errors.New("invalid list id")

func parseListID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("list_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidListID
	}

	return id, nil
}

func failed(resp any) error {
	if f, ok := resp.(endpoint.Failer); ok {
		return f.Failed()
	}

	return nil
}

// listResult unwraps a list endpoint response, writing the failure if
// there is one.
func listResult(c *gin.Context, resp any, err error) (*list.MovieList, bool) {
	if err != nil {
		fail(c, err)
		return nil, false
	}

	if err := failed(resp); err != nil {
		badRequest(c, err)
		return nil, false
	}

	response, ok := resp.(movielist.ListResponse)
	if !ok {
		fail(c, errors.New("invalid response"))
		return nil, false
	}

	return response.List, true
}

var accountListsPath = regexp.MustCompile(`^/[^/]+/lists/?$`)

// AccountHandler serves the lists of an account and proxies every
// other account resource to TMDB.
func AccountHandler(lists endpoint.Endpoint, proxy endpoint.Endpoint) gin.HandlerFunc {
	listsHandler := ListsHandler(lists)
	proxyHandler := ProxyHandler(proxy, "/tmdb")

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && accountListsPath.MatchString(c.Param("path")) {
			listsHandler(c)
			return
		}

		proxyHandler(c)
	}
}

func ListsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := endpoint(c.Request.Context(), nil)
		if err != nil {
			fail(c, err)
			return
		}

		response, ok := resp.(movielist.ListsResponse)
		if !ok {
			fail(c, errors.New("invalid response"))
			return
		}

		results := make([]*ListDTO, len(response.Lists))
		for i, l := range response.Lists {
			results[i] = NewListDTO(l)
		}

		c.JSON(http.StatusOK, &ListsDTO{
			Page:         1,
			TotalPages:   1,
			TotalResults: len(results),
			Results:      results,
		})
	}
}

func ListHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseListID(c)
		if err != nil {
			badRequest(c, err)
			return
		}

		resp, err := endpoint(c.Request.Context(), id)

		l, ok := listResult(c, resp, err)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, NewListDTO(l))
	}
}

func CreateListHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		l := list.NewMovieList(req.Name, req.Description, req.ISO6391, req.Visible, req.BackdropPath)

		resp, err := endpoint(c.Request.Context(), l)

		created, ok := listResult(c, resp, err)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, NewCommandResponse(StatusCreated, created.ID, created))
	}
}

func UpdateListHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseListID(c)
		if err != nil {
			badRequest(c, err)
			return
		}

		var req UpdateListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		p := list.Patch{
			ID:           id,
			Name:         req.Name,
			Description:  req.Description,
			Visible:      req.Visible,
			BackdropPath: req.BackdropPath,
		}

		resp, err := endpoint(c.Request.Context(), p)

		l, ok := listResult(c, resp, err)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, NewCommandResponse(StatusUpdated, l.ID, l))
	}
}

func DeleteListHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseListID(c)
		if err != nil {
			badRequest(c, err)
			return
		}

		resp, err := endpoint(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}

		if err := failed(resp); err != nil {
			badRequest(c, err)
			return
		}

		c.JSON(http.StatusOK, NewCommandResponse(StatusDeleted, id, nil))
	}
}

func itemsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseListID(c)
		if err != nil {
			badRequest(c, err)
			return
		}

		var req ItemsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		items := make([]*list.MediaRelation, len(req.Items))
		for i, item := range req.Items {
			if item == nil {
				continue
			}

			relation, err := item.reconstitute()
			if err != nil {
				badRequest(c, err)
				return
			}

			items[i] = relation
		}

		resp, err := endpoint(c.Request.Context(), movielist.ItemsRequest{
			ListID: id,
			Items:  items,
		})

		l, ok := listResult(c, resp, err)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, NewCommandResponse(StatusUpdated, l.ID, l))
	}
}

func AddItemsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return itemsHandler(endpoint)
}

func RemoveItemsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return itemsHandler(endpoint)
}
