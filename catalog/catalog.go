// Package catalog holds the marketplace records listed by the admin console
// and the listing options each resource accepts.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-listsync/pagination"
)

// Resource names.
const (
	Cars       = "cars"
	Bikes      = "bikes"
	Events     = "events"
	Users      = "users"
	HeroSlides = "hero-slides"
)

// Sort options.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortTitle     = "title"
	SortPosition  = "position"
)

// Record is implemented by every catalog type.
type Record interface {
	ItemID() string
	Validate() error
	// SearchText is matched against the searchTerm filter.
	SearchText() string
	// SortPrice orders records for the price sorts; zero for resources
	// without a price.
	SortPrice() int64
}

// Vehicle is a car or a bike for sale.
type Vehicle struct {
	ID        string    `json:"id"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Price     int64     `json:"price"`
	Mileage   int       `json:"mileage"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

func (v Vehicle) ItemID() string     { return v.ID }
func (v Vehicle) SearchText() string { return strings.TrimSpace(v.Make + " " + v.Model) }
func (v Vehicle) SortPrice() int64   { return v.Price }

// Validate checks the fields required to list a vehicle.
func (v Vehicle) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.Make, validation.Required, validation.Length(1, 64)),
		validation.Field(&v.Model, validation.Required, validation.Length(1, 64)),
		validation.Field(&v.Year, validation.Required, validation.Min(1886), validation.Max(2100)),
		validation.Field(&v.Price, validation.Min(int64(0))),
		validation.Field(&v.Mileage, validation.Min(0)),
	)
}

// Event is a marketplace event such as an auction or a track day.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	StartsAt  time.Time `json:"startsAt"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

func (e Event) ItemID() string     { return e.ID }
func (e Event) SearchText() string { return strings.TrimSpace(e.Title + " " + e.Location) }
func (e Event) SortPrice() int64   { return e.Price }

// Validate checks the fields required to publish an event.
func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Title, validation.Required, validation.Length(1, 120)),
		validation.Field(&e.StartsAt, validation.Required),
		validation.Field(&e.Price, validation.Min(int64(0))),
	)
}

// User is a console or marketplace account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Roles accepted for users.
var Roles = []any{"admin", "editor", "customer"}

func (u User) ItemID() string     { return u.ID }
func (u User) SearchText() string { return strings.TrimSpace(u.Name + " " + u.Email) }
func (u User) SortPrice() int64   { return 0 }

// Validate checks the account fields.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.Required),
		validation.Field(&u.Email, validation.Required, validation.By(looksLikeEmail)),
		validation.Field(&u.Role, validation.Required, validation.In(Roles...)),
	)
}

func looksLikeEmail(value any) error {
	s, _ := value.(string)
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 || strings.ContainsAny(s, " \t") {
		return validation.NewError("validation_email", "must be a valid email address")
	}
	return nil
}

// HeroSlide is a home page banner. Slides are ordered by Position.
type HeroSlide struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"imageUrl"`
	LinkURL  string `json:"linkUrl,omitempty"`
	Position int    `json:"position"`
}

func (s HeroSlide) ItemID() string     { return s.ID }
func (s HeroSlide) SearchText() string { return s.Title }
func (s HeroSlide) SortPrice() int64   { return 0 }

// Validate checks the slide fields.
func (s HeroSlide) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.ImageURL, validation.Required),
		validation.Field(&s.Position, validation.Min(0)),
	)
}

var sorts = map[string]pagination.SortConfig{
	Cars:       {Default: SortNewest, Allowed: []string{SortNewest, SortOldest, SortPriceAsc, SortPriceDesc}},
	Bikes:      {Default: SortNewest, Allowed: []string{SortNewest, SortOldest, SortPriceAsc, SortPriceDesc}},
	Events:     {Default: SortNewest, Allowed: []string{SortNewest, SortOldest, SortTitle, SortPriceAsc, SortPriceDesc}},
	Users:      {Default: SortNewest, Allowed: []string{SortNewest, SortOldest, SortTitle}},
	HeroSlides: {Default: SortPosition, Allowed: []string{SortPosition}},
}

// Resources returns the known resource names.
func Resources() []string {
	return []string{Cars, Bikes, Events, Users, HeroSlides}
}

// Known reports whether resource is part of the catalog.
func Known(resource string) bool {
	_, ok := sorts[resource]
	return ok
}

// SortConfig returns the sort options of resource.
func SortConfig(resource string) (pagination.SortConfig, bool) {
	cfg, ok := sorts[resource]
	return cfg, ok
}

// Decode parses and validates a create or update body for resource.
func Decode(resource string, raw []byte) (Record, error) {
	var rec Record
	switch resource {
	case Cars, Bikes:
		var v Vehicle
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, badBody(err)
		}
		rec = v
	case Events:
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, badBody(err)
		}
		rec = e
	case Users:
		var u User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, badBody(err)
		}
		rec = u
	case HeroSlides:
		var s HeroSlide
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, badBody(err)
		}
		rec = s
	default:
		return nil, goerrors.New(fmt.Sprintf("unknown resource %q", resource), goerrors.CategoryNotFound).
			WithTextCode("UNKNOWN_RESOURCE")
	}

	if err := rec.Validate(); err != nil {
		return nil, goerrors.FromOzzoValidation(err, fmt.Sprintf("invalid %s record", resource))
	}
	return rec, nil
}

func badBody(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed request body").
		WithTextCode("MALFORMED_BODY")
}
