package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

const maxSearchLength = 100

// ProductList handles GET /api/v1/products.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		query, err := parseProductQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Products, result.Meta)
	}
}

func parseProductQuery(r *http.Request) (catalog.Query, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
	if err != nil {
		return catalog.Query{}, err
	}
	perPage, err := validators.ParseQueryInt(r, "per_page", pagination.DefaultPerPage, 1, pagination.MaxPerPage)
	if err != nil {
		return catalog.Query{}, err
	}
	minPrice, err := validators.ParseQueryDecimal(r, "min_price")
	if err != nil {
		return catalog.Query{}, err
	}
	maxPrice, err := validators.ParseQueryDecimal(r, "max_price")
	if err != nil {
		return catalog.Query{}, err
	}

	q := catalog.Query{
		Search:     validators.SanitizeString(r.URL.Query().Get("search"), maxSearchLength),
		Categories: validators.ParseQueryList(r, "category"),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Page:       page,
		PerPage:    perPage,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("sort")); raw != "" {
		sort, err := enums.ParseProductSort(raw)
		if err != nil {
			return catalog.Query{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort").
				WithDetails(map[string]string{"sort": "is not a supported order"})
		}
		q.Sort = sort
	}
	return q, nil
}

// ProductDetail handles GET /api/v1/products/{productId}.
func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "productId")), 10, 64)
		if err != nil || id <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}

		detail, err := svc.Product(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func CategoryList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}
