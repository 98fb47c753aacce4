package movielist

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/movielist/list"
	"github.com/flarexio/movielist/tmdb"
)

var ErrInvalidRequest = errors.New("invalid request")

type EndpointSet struct {
	Lists       endpoint.Endpoint
	List        endpoint.Endpoint
	CreateList  endpoint.Endpoint
	UpdateList  endpoint.Endpoint
	DeleteList  endpoint.Endpoint
	AddItems    endpoint.Endpoint
	RemoveItems endpoint.Endpoint
	Proxy       endpoint.Endpoint
	Image       endpoint.Endpoint
}

// Proxy forwards requests to TMDB.
type Proxy interface {
	FetchAPI(ctx context.Context, req tmdb.Request) (*tmdb.Response, error)
	FetchImage(ctx context.Context, req tmdb.Request) (*tmdb.Response, error)
}

func NewEndpointSet(svc Service, proxy Proxy) EndpointSet {
	return EndpointSet{
		Lists:       ListsEndpoint(svc),
		List:        ListEndpoint(svc),
		CreateList:  CreateListEndpoint(svc),
		UpdateList:  UpdateListEndpoint(svc),
		DeleteList:  DeleteListEndpoint(svc),
		AddItems:    AddItemsEndpoint(svc),
		RemoveItems: RemoveItemsEndpoint(svc),
		Proxy:       ProxyEndpoint(proxy),
		Image:       ImageEndpoint(proxy),
	}
}

// WithListMiddleware wraps the movie list endpoints.
func (set EndpointSet) WithListMiddleware(mw endpoint.Middleware) EndpointSet {
	set.Lists = mw(set.Lists)
	set.List = mw(set.List)
	set.CreateList = mw(set.CreateList)
	set.UpdateList = mw(set.UpdateList)
	set.DeleteList = mw(set.DeleteList)
	set.AddItems = mw(set.AddItems)
	set.RemoveItems = mw(set.RemoveItems)
	return set
}

// WithProxyMiddleware wraps the TMDB proxy endpoints.
func (set EndpointSet) WithProxyMiddleware(mw endpoint.Middleware) EndpointSet {
	set.Proxy = mw(set.Proxy)
	set.Image = mw(set.Image)
	return set
}

// IsBusinessError reports whether err is caused by the request itself.
// Such errors are carried inside responses and never retried.
func IsBusinessError(err error) bool {
	return errors.Is(err, list.ErrListNotFound) ||
		errors.Is(err, list.ErrInvalidList) ||
		errors.Is(err, list.ErrInvalidItem) ||
		errors.Is(err, list.ErrMediaNotFound) ||
		errors.Is(err, ErrInvalidRequest)
}

type ListsResponse struct {
	Lists []*list.MovieList
}

func ListsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		lists, err := svc.Lists(ctx)
		if err != nil {
			return nil, err
		}

		return ListsResponse{lists}, nil
	}
}

type ListResponse struct {
	List *list.MovieList
	Err  error
}

func (resp ListResponse) Failed() error {
	return resp.Err
}

func listResponse(l *list.MovieList, err error) (any, error) {
	if err != nil {
		if IsBusinessError(err) {
			return ListResponse{Err: err}, nil
		}

		return nil, err
	}

	return ListResponse{List: l}, nil
}

func ListEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		id, ok := request.(int64)
		if !ok {
			return ListResponse{Err: ErrInvalidRequest}, nil
		}

		return listResponse(svc.List(ctx, id))
	}
}

func CreateListEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		l, ok := request.(*list.MovieList)
		if !ok {
			return ListResponse{Err: ErrInvalidRequest}, nil
		}

		return listResponse(svc.CreateList(ctx, l))
	}
}

func UpdateListEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		p, ok := request.(list.Patch)
		if !ok {
			return ListResponse{Err: ErrInvalidRequest}, nil
		}

		return listResponse(svc.UpdateList(ctx, p))
	}
}

type DeleteListResponse struct {
	ID  int64
	Err error
}

func (resp DeleteListResponse) Failed() error {
	return resp.Err
}

func DeleteListEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		id, ok := request.(int64)
		if !ok {
			return DeleteListResponse{Err: ErrInvalidRequest}, nil
		}

		if err := svc.DeleteList(ctx, id); err != nil {
			if IsBusinessError(err) {
				return DeleteListResponse{ID: id, Err: err}, nil
			}

			return nil, err
		}

		return DeleteListResponse{ID: id}, nil
	}
}

type ItemsRequest struct {
	ListID int64
	Items  []*list.MediaRelation
}

func AddItemsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(ItemsRequest)
		if !ok {
			return ListResponse{Err: ErrInvalidRequest}, nil
		}

		return listResponse(svc.AddItems(ctx, req.ListID, req.Items))
	}
}

func RemoveItemsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(ItemsRequest)
		if !ok {
			return ListResponse{Err: ErrInvalidRequest}, nil
		}

		return listResponse(svc.RemoveItems(ctx, req.ListID, req.Items))
	}
}

func ProxyEndpoint(proxy Proxy) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(tmdb.Request)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return proxy.FetchAPI(ctx, req)
	}
}

func ImageEndpoint(proxy Proxy) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(tmdb.Request)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return proxy.FetchImage(ctx, req)
	}
}
