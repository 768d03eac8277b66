// Package catalog serves the product listing, product detail and category
// views over the commerce API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/pagination"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

type productAPI interface {
	Products(ctx context.Context, page, perPage int) ([]commerce.Product, error)
	Product(ctx context.Context, id int64) (*commerce.Product, error)
	ProductVariations(ctx context.Context, productID int64) ([]commerce.Variation, error)
	Categories(ctx context.Context) ([]commerce.Category, error)
}

// Cache is the key-value surface used to keep upstream listings. A miss is
// reported with the redis nil error.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CatalogKey(parts ...string) string
}

// ListResult is one page of a filtered listing.
type ListResult struct {
	Products []commerce.Product `json:"products"`
	Meta     pagination.Meta    `json:"meta"`
}

// ProductDetail is the product page view.
type ProductDetail struct {
	Product    commerce.Product     `json:"product"`
	Variations []commerce.Variation `json:"variations"`
	Defaults   map[string]string    `json:"default_selections"`
	Selected   *commerce.Variation  `json:"selected_variation,omitempty"`
}

type Service interface {
	List(ctx context.Context, q Query) (*ListResult, error)
	Product(ctx context.Context, id int64) (*ProductDetail, error)
	Categories(ctx context.Context) ([]commerce.Category, error)
}

type service struct {
	api   productAPI
	cache Cache
	cfg   config.CatalogConfig
	logg  *logger.Logger
}

// NewService builds the catalog service. cache may be nil.
func NewService(api productAPI, cache Cache, cfg config.CatalogConfig, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("product api required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = pagination.MaxPerPage
	}
	return &service{api: api, cache: cache, cfg: cfg, logg: logg}, nil
}

func (s *service) List(ctx context.Context, q Query) (*ListResult, error) {
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid price range").
			WithDetails(map[string]string{"min_price": "must not exceed max_price"})
	}
	if q.Sort != "" && !q.Sort.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort").
			WithDetails(map[string]string{"sort": "is not a supported order"})
	}

	var products []commerce.Product
	key := s.cacheKey("products", strconv.Itoa(s.cfg.PageSize))
	err := s.cached(ctx, key, &products, func() error {
		var fetchErr error
		products, fetchErr = s.api.Products(ctx, 1, s.cfg.PageSize)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	filtered := Filter(products, q)
	page, meta := pagination.Slice(filtered, pagination.Params{Page: q.Page, PerPage: q.PerPage})
	return &ListResult{Products: page, Meta: meta}, nil
}

// Product loads a product and, for variable products, its variations.
// A failed variation fetch leaves the list empty.
func (s *service) Product(ctx context.Context, id int64) (*ProductDetail, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	product, err := s.api.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &ProductDetail{
		Product:    *product,
		Variations: []commerce.Variation{},
		Defaults:   DefaultSelections(*product),
	}
	if !product.IsVariable() {
		return detail, nil
	}

	variations, err := s.api.ProductVariations(ctx, id)
	if err != nil {
		logCtx := s.logg.WithField(ctx, "product_id", id)
		s.logg.Error(logCtx, "catalog.variations.fetch_failed", err)
		return detail, nil
	}
	if variations != nil {
		detail.Variations = variations
	}
	if match, ok := MatchVariation(detail.Variations, detail.Defaults); ok {
		detail.Selected = &match
	}
	return detail, nil
}

func (s *service) Categories(ctx context.Context) ([]commerce.Category, error) {
	var categories []commerce.Category
	err := s.cached(ctx, s.cacheKey("categories"), &categories, func() error {
		var fetchErr error
		categories, fetchErr = s.api.Categories(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []commerce.Category{}
	}
	return categories, nil
}

func (s *service) cacheKey(parts ...string) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.CatalogKey(parts...)
}

// cached decodes key into dest, or runs fetch and stores dest. Cache
// failures fall through to the upstream.
func (s *service) cached(ctx context.Context, key string, dest any, fetch func() error) error {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return fetch()
	}
	logCtx := s.logg.WithField(ctx, "cache_key", key)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		if decodeErr := json.Unmarshal([]byte(raw), dest); decodeErr == nil {
			return nil
		}
		s.logg.Warn(logCtx, "catalog.cache.malformed")
	case !pkgredis.IsNil(err):
		s.logg.Error(logCtx, "catalog.cache.read_failed", err)
	}

	if err := fetch(); err != nil {
		return err
	}
	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL); err != nil {
		s.logg.Error(logCtx, "catalog.cache.write_failed", err)
	}
	return nil
}
