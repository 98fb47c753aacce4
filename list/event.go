package list

import (
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventName int

const (
	ListCreated EventName = iota
	ListUpdated
	ListDeleted
	ListItemsAdded
	ListItemsRemoved
)

func (name EventName) String() string {
	switch name {
	case ListCreated:
		return "list_created"
	case ListUpdated:
		return "list_updated"
	case ListDeleted:
		return "list_deleted"
	case ListItemsAdded:
		return "list_items_added"
	case ListItemsRemoved:
		return "list_items_removed"
	default:
		return "unknown"
	}
}

type Event struct {
	ID         ulid.ULID `json:"id"`
	Name       string    `json:"name"`
	ListID     int64     `json:"list_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Items      []Item    `json:"items,omitempty"`
}

type Item struct {
	MediaID   int64     `json:"media_id"`
	MediaType MediaType `json:"media_type"`
}

func NewEvent(name EventName, listID int64, items ...*MediaRelation) *Event {
	e := &Event{
		ID:         ulid.Make(),
		Name:       name.String(),
		ListID:     listID,
		OccurredAt: time.Now(),
	}

	for _, item := range items {
		e.Items = append(e.Items, Item{item.MediaID, item.MediaType})
	}

	return e
}

func (e *Event) EventName() string {
	return e.Name
}

// Topic returns "<prefix>.<list_id>.<action>", e.g. "lists.7.created".
func (e *Event) Topic(prefix string) string {
	action := strings.TrimPrefix(e.Name, "list_")
	return prefix + "." + strconv.FormatInt(e.ListID, 10) + "." + action
}

type EventPublisher interface {
	Publish(e *Event) error
}
