package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	products      []commerce.Product
	productsErr   error
	productCalls  int
	perPage       int
	product       *commerce.Product
	productErr    error
	variations    []commerce.Variation
	variationsErr error
	categories    []commerce.Category
}

func (s *stubAPI) Products(_ context.Context, _ int, perPage int) ([]commerce.Product, error) {
	s.productCalls++
	s.perPage = perPage
	return s.products, s.productsErr
}

func (s *stubAPI) Product(context.Context, int64) (*commerce.Product, error) {
	return s.product, s.productErr
}

func (s *stubAPI) ProductVariations(context.Context, int64) ([]commerce.Variation, error) {
	return s.variations, s.variationsErr
}

func (s *stubAPI) Categories(context.Context) ([]commerce.Category, error) {
	return s.categories, nil
}

type memoryCache struct {
	values  map[string]string
	ttl     time.Duration
	readErr error
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	if m.readErr != nil {
		return "", m.readErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = string(value.([]byte))
	m.ttl = ttl
	return nil
}

func (m *memoryCache) CatalogKey(parts ...string) string {
	return "sf:catalog:" + strings.Join(parts, ":")
}

func newService(t *testing.T, api *stubAPI, cache Cache) Service {
	t.Helper()
	svc, err := NewService(api, cache, config.CatalogConfig{CacheTTL: time.Minute, PageSize: 100}, nil)
	require.NoError(t, err)
	return svc
}

func TestListCachesUpstreamProducts(t *testing.T) {
	t.Parallel()

	api := &stubAPI{products: sampleProducts()}
	cache := &memoryCache{}
	svc := newService(t, api, cache)

	first, err := svc.List(context.Background(), Query{Search: "mug", Sort: enums.ProductSortPriceLow})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1}, ids(first.Products))
	assert.Equal(t, 2, first.Meta.Total)
	assert.Equal(t, 100, api.perPage)

	second, err := svc.List(context.Background(), Query{PerPage: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, ids(second.Products))
	assert.Equal(t, 1, api.productCalls, "second listing should come from cache")
	assert.Contains(t, cache.values, "sf:catalog:products:100")
	assert.Equal(t, time.Minute, cache.ttl)
}

func TestListCacheReadFailureFallsThrough(t *testing.T) {
	t.Parallel()

	api := &stubAPI{products: sampleProducts()}
	svc := newService(t, api, &memoryCache{readErr: errors.New("connection refused")})

	result, err := svc.List(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, result.Products, 4)
	assert.Equal(t, 1, api.productCalls)
}

func TestListWithoutCache(t *testing.T) {
	t.Parallel()

	api := &stubAPI{products: sampleProducts()}
	svc := newService(t, api, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.List(context.Background(), Query{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, api.productCalls)
}

func TestListValidatesQuery(t *testing.T) {
	t.Parallel()

	svc := newService(t, &stubAPI{}, nil)

	_, err := svc.List(context.Background(), Query{MinPrice: dec("20"), MaxPrice: dec("10")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(context.Background(), Query{Sort: enums.ProductSort("cheapest")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestListPropagatesUpstreamError(t *testing.T) {
	t.Parallel()

	api := &stubAPI{productsErr: pkgerrors.New(pkgerrors.CodeNetworkFailure, "down")}
	svc := newService(t, api, &memoryCache{})

	_, err := svc.List(context.Background(), Query{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNetworkFailure))
}

func TestProductVariable(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		product: &commerce.Product{
			ID:   5,
			Type: "variable",
			Attributes: []commerce.ProductAttribute{
				{Name: "Size", Options: []string{"M", "L"}},
			},
		},
		variations: []commerce.Variation{
			{ID: 51, Price: "10", Attributes: []commerce.VariationAttribute{{Name: "Size", Option: "L"}}},
			{ID: 52, Price: "11", Attributes: []commerce.VariationAttribute{{Name: "Size", Option: "M"}}},
		},
	}
	svc := newService(t, api, nil)

	detail, err := svc.Product(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Size": "M"}, detail.Defaults)
	require.Len(t, detail.Variations, 2)
	require.NotNil(t, detail.Selected)
	assert.Equal(t, int64(52), detail.Selected.ID)
}

func TestProductVariationFailureDegrades(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		product:       &commerce.Product{ID: 5, Type: "variable"},
		variationsErr: errors.New("timeout"),
	}
	svc := newService(t, api, nil)

	detail, err := svc.Product(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, detail.Variations)
	assert.Nil(t, detail.Selected)
}

func TestProductNotFound(t *testing.T) {
	t.Parallel()

	api := &stubAPI{productErr: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	svc := newService(t, api, nil)

	_, err := svc.Product(context.Background(), 5)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Product(context.Background(), 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCategoriesCached(t *testing.T) {
	t.Parallel()

	api := &stubAPI{categories: []commerce.Category{{ID: 10, Name: "Mugs", Slug: "mugs"}}}
	cache := &memoryCache{}
	svc := newService(t, api, cache)

	categories, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Contains(t, cache.values, "sf:catalog:categories")

	api.categories = nil
	categories, err = svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mugs", categories[0].Name)
}
