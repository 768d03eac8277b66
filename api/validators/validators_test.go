package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type itemBody struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

func TestDecodeJSONBody(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"product_id":3,"quantity":2}`},
		{name: "unknown field", body: `{"product_id":3,"quantity":2,"x":1}`, wantErr: true},
		{name: "missing quantity", body: `{"product_id":3}`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
		{name: "malformed", body: `{"product_id":`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dest itemBody
			err := DecodeJSONBody(req, &dest)
			if tc.wantErr {
				if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dest.ProductID != 3 || dest.Quantity != 2 {
				t.Fatalf("unexpected decode %+v", dest)
			}
		})
	}
}

func TestQueryParsers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=2&min_price=4.50&category=1,2&category=3&bad=x&neg=-1", nil)

	page, err := ParseQueryInt(req, "page", 1, 1, 100)
	if err != nil || page != 2 {
		t.Fatalf("page = %d, %v", page, err)
	}
	if v, err := ParseQueryInt(req, "per_page", 24, 1, 100); err != nil || v != 24 {
		t.Fatalf("default not applied: %d %v", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 1, 1, 10); err == nil {
		t.Fatalf("expected error for non numeric value")
	}

	min, err := ParseQueryDecimal(req, "min_price")
	if err != nil || min == nil || min.StringFixed(2) != "4.50" {
		t.Fatalf("min_price = %v, %v", min, err)
	}
	if v, err := ParseQueryDecimal(req, "max_price"); err != nil || v != nil {
		t.Fatalf("absent decimal should be nil")
	}
	if _, err := ParseQueryDecimal(req, "neg"); err == nil {
		t.Fatalf("expected negative decimal rejection")
	}

	cats := ParseQueryList(req, "category")
	if strings.Join(cats, "|") != "1|2|3" {
		t.Fatalf("unexpected categories %v", cats)
	}
}

func TestParsePathInt(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("index", "4")
	rctx.URLParams.Add("bad", "-2")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	if v, err := ParsePathInt(req, "index"); err != nil || v != 4 {
		t.Fatalf("index = %d, %v", v, err)
	}
	if _, err := ParsePathInt(req, "bad"); err == nil {
		t.Fatalf("expected error for negative index")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  héllo world ", 5); got != "héllo" {
		t.Fatalf("got %q", got)
	}
}
