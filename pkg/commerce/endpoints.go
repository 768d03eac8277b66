package commerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

const maxPerPage = 100

func (c *Client) ShippingZones(ctx context.Context) ([]ShippingZone, error) {
	var zones []ShippingZone
	if err := c.do(ctx, "shipping_zones", http.MethodGet, "shipping/zones", nil, nil, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

func (c *Client) ZoneLocations(ctx context.Context, zoneID int64) ([]ZoneLocation, error) {
	var locations []ZoneLocation
	path := fmt.Sprintf("shipping/zones/%d/locations", zoneID)
	if err := c.do(ctx, "shipping_zone_locations", http.MethodGet, path, nil, nil, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

func (c *Client) ZoneMethods(ctx context.Context, zoneID int64) ([]ShippingMethod, error) {
	var methods []ShippingMethod
	path := fmt.Sprintf("shipping/zones/%d/methods", zoneID)
	if err := c.do(ctx, "shipping_zone_methods", http.MethodGet, path, nil, nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// Countries returns the full country catalog in payload order.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	var countries countryList
	if err := c.do(ctx, "countries", http.MethodGet, "data/countries", nil, nil, &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

// CountryStates returns the states of one country; an empty slice means the
// country takes free-text states.
func (c *Client) CountryStates(ctx context.Context, countryCode string) ([]State, error) {
	code := strings.TrimSpace(countryCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country code is required")
	}
	var resp struct {
		States stateList `json:"states"`
	}
	path := "data/countries/" + url.PathEscape(code)
	if err := c.do(ctx, "country_states", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.States, nil
}

func (c *Client) PaymentGateways(ctx context.Context) ([]PaymentGateway, error) {
	var gateways []PaymentGateway
	if err := c.do(ctx, "payment_gateways", http.MethodGet, "payment_gateways", nil, nil, &gateways); err != nil {
		return nil, err
	}
	return gateways, nil
}

func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if req == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order request is required")
	}
	var order Order
	if err := c.do(ctx, "orders", http.MethodPost, "orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CustomerOrders(ctx context.Context, customerID int64) ([]Order, error) {
	var orders []Order
	query := url.Values{"customer": {strconv.FormatInt(customerID, 10)}}
	if err := c.do(ctx, "orders", http.MethodGet, "orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) CreateCustomer(ctx context.Context, req CustomerCreate) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, "customers", http.MethodPost, "customers", nil, req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) FindCustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	var customers []Customer
	query := url.Values{"email": {strings.TrimSpace(email)}}
	if err := c.do(ctx, "customers", http.MethodGet, "customers", query, nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (c *Client) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	var customer Customer
	path := fmt.Sprintf("customers/%d", id)
	if err := c.do(ctx, "customer", http.MethodGet, path, nil, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, id int64, req CustomerUpdate) (*Customer, error) {
	var customer Customer
	path := fmt.Sprintf("customers/%d", id)
	if err := c.do(ctx, "customer", http.MethodPut, path, nil, req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Products lists one page of products. perPage is capped at 100.
func (c *Client) Products(ctx context.Context, page, perPage int) ([]Product, error) {
	query := pageQuery(page, perPage)
	var products []Product
	if err := c.do(ctx, "products", http.MethodGet, "products", query, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	var product Product
	path := fmt.Sprintf("products/%d", id)
	if err := c.do(ctx, "product", http.MethodGet, path, nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ProductVariations(ctx context.Context, productID int64) ([]Variation, error) {
	var variations []Variation
	path := fmt.Sprintf("products/%d/variations", productID)
	if err := c.do(ctx, "product_variations", http.MethodGet, path, pageQuery(1, maxPerPage), nil, &variations); err != nil {
		return nil, err
	}
	return variations, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.do(ctx, "product_categories", http.MethodGet, "products/categories", pageQuery(1, maxPerPage), nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func pageQuery(page, perPage int) url.Values {
	if perPage <= 0 || perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return url.Values{
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
	}
}
