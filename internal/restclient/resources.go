package restclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cinedesk/cinedesk/internal/domain/identity"
)

// Pagination is the backend's list pagination block.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ResourceClient provides CRUD access to one backend collection. List
// responses arrive as {success, data: {<plural>: [...], pagination}};
// single-record responses carry the record in data.
type ResourceClient[T any] struct {
	client *Client
	base   string
	plural string
}

func resource[T any](c *Client, base, plural string) *ResourceClient[T] {
	return &ResourceClient[T]{client: c, base: base, plural: plural}
}

// List fetches a page of records. params may be nil.
func (r *ResourceClient[T]) List(ctx context.Context, params url.Values) ([]T, *Pagination, error) {
	path := r.base
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var env struct {
		Success bool                       `json:"success"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	if err := r.client.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, nil, err
	}

	var items []T
	if raw, ok := env.Data[r.plural]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, nil, fmt.Errorf("decode %s list: %w", r.plural, err)
		}
	}
	var page *Pagination
	if raw, ok := env.Data["pagination"]; ok {
		page = new(Pagination)
		if err := json.Unmarshal(raw, page); err != nil {
			page = nil
		}
	}
	return items, page, nil
}

// Get fetches one record by id.
func (r *ResourceClient[T]) Get(ctx context.Context, id string) (*T, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := r.client.do(ctx, http.MethodGet, r.base+"/"+url.PathEscape(id), nil, &env); err != nil {
		return nil, err
	}
	return decodeRecord[T](env.Data)
}

// Create creates a record and returns the stored version.
func (r *ResourceClient[T]) Create(ctx context.Context, in any) (*T, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := r.client.do(ctx, http.MethodPost, r.base, in, &env); err != nil {
		return nil, err
	}
	return decodeRecord[T](env.Data)
}

// Update updates a record by id and returns the stored version.
func (r *ResourceClient[T]) Update(ctx context.Context, id string, in any) (*T, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := r.client.do(ctx, http.MethodPut, r.base+"/"+url.PathEscape(id), in, &env); err != nil {
		return nil, err
	}
	return decodeRecord[T](env.Data)
}

// Delete removes a record by id.
func (r *ResourceClient[T]) Delete(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodDelete, r.base+"/"+url.PathEscape(id), nil, nil)
}

func decodeRecord[T any](raw json.RawMessage) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// Movies returns the movie catalog collection.
func (c *Client) Movies() *ResourceClient[Movie] {
	return resource[Movie](c, "/movies", "movies")
}

// Theaters returns the theater collection.
func (c *Client) Theaters() *ResourceClient[Theater] {
	return resource[Theater](c, "/theaters", "theaters")
}

// Halls returns the hall collection.
func (c *Client) Halls() *ResourceClient[Hall] {
	return resource[Hall](c, "/halls", "halls")
}

// Showtimes returns the showtime collection.
func (c *Client) Showtimes() *ResourceClient[Showtime] {
	return resource[Showtime](c, "/showtimes", "showtimes")
}

// Bookings returns the booking collection.
func (c *Client) Bookings() *ResourceClient[Booking] {
	return resource[Booking](c, "/bookings", "bookings")
}

// Seats returns the seat collection.
func (c *Client) Seats() *ResourceClient[Seat] {
	return resource[Seat](c, "/seats", "seats")
}

// Payments returns the payment collection.
func (c *Client) Payments() *ResourceClient[Payment] {
	return resource[Payment](c, "/payments", "payments")
}

// Invoices returns the invoice collection.
func (c *Client) Invoices() *ResourceClient[Invoice] {
	return resource[Invoice](c, "/invoices", "invoices")
}

// Promotions returns the promotion collection.
func (c *Client) Promotions() *ResourceClient[Promotion] {
	return resource[Promotion](c, "/promotions", "promotions")
}

// Users returns the user administration collection.
func (c *Client) Users() *ResourceClient[identity.User] {
	return resource[identity.User](c, "/users", "users")
}
