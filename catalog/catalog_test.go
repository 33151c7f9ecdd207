package catalog

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		resource  string
		body      string
		wantID    string
		wantText  string
		wantField string
		wantCat   goerrors.Category
	}{
		{
			name:     "car",
			resource: Cars,
			body:     `{"id":"c1","make":"Ferrari","model":"Roma","year":2023,"price":220000}`,
			wantID:   "c1",
			wantText: "Ferrari Roma",
		},
		{
			name:     "bike",
			resource: Bikes,
			body:     `{"make":"Ducati","model":"Panigale V4","year":2024}`,
			wantText: "Ducati Panigale V4",
		},
		{
			name:     "event",
			resource: Events,
			body:     `{"title":"Spring Auction","location":"Monaco","startsAt":"2024-05-01T10:00:00Z"}`,
			wantText: "Spring Auction Monaco",
		},
		{
			name:     "user",
			resource: Users,
			body:     `{"name":"Ada","email":"ada@example.com","role":"editor"}`,
			wantText: "Ada ada@example.com",
		},
		{
			name:     "slide",
			resource: HeroSlides,
			body:     `{"title":"Summer","imageUrl":"/img/summer.jpg","position":2}`,
			wantText: "Summer",
		},
		{
			name:      "car without year",
			resource:  Cars,
			body:      `{"make":"Ferrari","model":"Roma"}`,
			wantField: "year",
			wantCat:   goerrors.CategoryValidation,
		},
		{
			name:      "user with bad email",
			resource:  Users,
			body:      `{"name":"Ada","email":"ada","role":"editor"}`,
			wantField: "email",
			wantCat:   goerrors.CategoryValidation,
		},
		{
			name:      "user with unknown role",
			resource:  Users,
			body:      `{"name":"Ada","email":"ada@example.com","role":"root"}`,
			wantField: "role",
			wantCat:   goerrors.CategoryValidation,
		},
		{
			name:     "malformed",
			resource: Events,
			body:     `{"title":`,
			wantCat:  goerrors.CategoryBadInput,
		},
		{
			name:     "unknown resource",
			resource: "boats",
			body:     `{}`,
			wantCat:  goerrors.CategoryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Decode(tt.resource, []byte(tt.body))
			if tt.wantCat != "" {
				if !goerrors.IsCategory(err, tt.wantCat) {
					t.Fatalf("expected %s error, got %v", tt.wantCat, err)
				}
				if tt.wantField != "" {
					var gerr *goerrors.Error
					goerrors.As(err, &gerr)
					if _, ok := gerr.ValidationMap()[tt.wantField]; !ok {
						t.Errorf("expected field %s in %v", tt.wantField, gerr.ValidationMap())
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if rec.ItemID() != tt.wantID {
				t.Errorf("expected id %q, got %q", tt.wantID, rec.ItemID())
			}
			if rec.SearchText() != tt.wantText {
				t.Errorf("expected search text %q, got %q", tt.wantText, rec.SearchText())
			}
		})
	}
}

func TestSortConfig(t *testing.T) {
	for _, resource := range Resources() {
		if !Known(resource) {
			t.Errorf("expected %s to be known", resource)
		}
		cfg, ok := SortConfig(resource)
		if !ok || cfg.Default == "" || len(cfg.Allowed) == 0 {
			t.Errorf("expected sort config for %s, got %+v", resource, cfg)
		}
	}
	if Known("boats") {
		t.Error("expected boats to be unknown")
	}
}

func TestRecordPrices(t *testing.T) {
	if (Vehicle{Price: 10}).SortPrice() != 10 || (Event{Price: 5}).SortPrice() != 5 {
		t.Error("unexpected price")
	}
	if (User{}).SortPrice() != 0 || (HeroSlide{}).SortPrice() != 0 {
		t.Error("expected zero price")
	}
}
