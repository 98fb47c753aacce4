package http

import (
	"encoding/json"
	"errors"

	"github.com/flarexio/movielist/list"
)

type ListDTO struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	ISO6391       string     `json:"iso_639_1"`
	Visible       bool       `json:"visible"`
	Results       []*ItemDTO `json:"results"`
	NumberOfItems int        `json:"number_of_items"`
	BackdropPath  string     `json:"backdrop_path"`
}

func NewListDTO(l *list.MovieList) *ListDTO {
	results := make([]*ItemDTO, len(l.Items))
	for i, item := range l.Items {
		results[i] = NewItemDTO(item)
	}

	return &ListDTO{
		ID:            l.ID,
		Name:          l.Name,
		Description:   l.Description,
		ISO6391:       l.ISO6391,
		Visible:       l.Visible,
		Results:       results,
		NumberOfItems: len(l.Items),
		BackdropPath:  l.BackdropPath,
	}
}

// ItemDTO is a list item with its TMDB document flattened into the
// same JSON object.
type ItemDTO struct {
	MediaID   int64
	MediaType string
	Success   *bool
	APIData   map[string]any
}

func NewItemDTO(item *list.MediaRelation) *ItemDTO {
	return &ItemDTO{
		MediaID:   item.MediaID,
		MediaType: string(item.MediaType),
		APIData:   item.APIData,
	}
}

func (item *ItemDTO) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(item.APIData)+3)
	for k, v := range item.APIData {
		m[k] = v
	}

	m["media_id"] = item.MediaID
	m["media_type"] = item.MediaType

	if item.Success != nil {
		m["success"] = *item.Success
	}

	return json.Marshal(m)
}

func (item *ItemDTO) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	if raw, ok := m["media_id"]; ok {
		if err := json.Unmarshal(raw, &item.MediaID); err != nil {
			return errors.New("media_id must be a number")
		}
		delete(m, "media_id")
	}

	if raw, ok := m["media_type"]; ok {
		if err := json.Unmarshal(raw, &item.MediaType); err != nil {
			return errors.New("media_type must be a string")
		}
		delete(m, "media_type")
	}

	if raw, ok := m["success"]; ok {
		var success bool
		if err := json.Unmarshal(raw, &success); err == nil {
			item.Success = &success
		}
		delete(m, "success")
	}

	if len(m) == 0 {
		return nil
	}

	item.APIData = make(map[string]any, len(m))
	for k, raw := range m {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}

		item.APIData[k] = v
	}

	return nil
}

// reconstitute accepts the media type in any case, e.g. "Movie".
func (item *ItemDTO) reconstitute() (*list.MediaRelation, error) {
	t, err := list.ParseMediaType(item.MediaType)
	if err != nil {
		return nil, err
	}

	return list.NewMediaRelation(item.MediaID, t), nil
}

type ListsDTO struct {
	Page         int        `json:"page"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
	Results      []*ListDTO `json:"results"`
}

const (
	StatusCreated = 1
	StatusUpdated = 12
	StatusDeleted = 13
)

var statusMessages = map[int]string{
	StatusCreated: "The item/record was created successfully.",
	StatusUpdated: "The item/record was updated successfully.",
	StatusDeleted: "The item/record was deleted successfully.",
}

// CommandResponse acknowledges a command. The list fields, when
// present, are flattened into the same object.
type CommandResponse struct {
	Success       bool   `json:"success"`
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	ID            int64  `json:"id"`
	*ListDTO
}

func NewCommandResponse(code int, id int64, l *list.MovieList) *CommandResponse {
	resp := &CommandResponse{
		Success:       true,
		StatusCode:    code,
		StatusMessage: statusMessages[code],
		ID:            id,
	}

	if l != nil {
		resp.ListDTO = NewListDTO(l)
	}

	return resp
}

type CreateListRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ISO6391      string `json:"iso_639_1"`
	Visible      bool   `json:"visible"`
	BackdropPath string `json:"backdrop_path"`
}

type UpdateListRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Visible      *bool   `json:"visible"`
	BackdropPath *string `json:"backdrop_path"`
}

type ItemsRequest struct {
	Items []*ItemDTO `json:"items"`
}
