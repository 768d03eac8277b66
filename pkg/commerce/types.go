package commerce

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

type ShippingZone struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type ZoneLocation struct {
	Code string             `json:"code"`
	Type enums.LocationType `json:"type"`
}

// CountryCode returns the country part of the location code. State
// locations are encoded as "US:CA".
func (l ZoneLocation) CountryCode() string {
	code, _, _ := strings.Cut(l.Code, ":")
	return code
}

type ShippingMethod struct {
	ID                int64          `json:"id"`
	InstanceID        int64          `json:"instance_id"`
	Title             string         `json:"title"`
	Order             int            `json:"order"`
	Enabled           bool           `json:"enabled"`
	MethodID          string         `json:"method_id"`
	MethodTitle       string         `json:"method_title"`
	MethodDescription string         `json:"method_description"`
	Settings          MethodSettings `json:"settings"`
}

type MethodSettings struct {
	Cost *SettingValue `json:"cost,omitempty"`
}

type SettingValue struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// FlatCost returns the configured flat cost, or nil when the method has no
// parseable cost setting.
func (m ShippingMethod) FlatCost() *decimal.Decimal {
	if m.Settings.Cost == nil {
		return nil
	}
	raw := strings.TrimSpace(m.Settings.Cost.Value)
	if raw == "" {
		return nil
	}
	cost, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &cost
}

type PaymentGateway struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

type Country struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	States []State `json:"states,omitempty"`
}

type State struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type Customer struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Username  string  `json:"username,omitempty"`
	Billing   Address `json:"billing"`
	Shipping  Address `json:"shipping"`
}

// CustomerCreate is the registration payload.
type CustomerCreate struct {
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Username  string   `json:"username,omitempty"`
	Password  string   `json:"password,omitempty"`
	Billing   *Address `json:"billing,omitempty"`
}

// CustomerUpdate is the profile update payload.
type CustomerUpdate struct {
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Billing   *Address `json:"billing,omitempty"`
}

type OrderRequest struct {
	PaymentMethod      string         `json:"payment_method"`
	PaymentMethodTitle string         `json:"payment_method_title"`
	SetPaid            bool           `json:"set_paid"`
	CustomerID         int64          `json:"customer_id"`
	Billing            Address        `json:"billing"`
	Shipping           Address        `json:"shipping"`
	LineItems          []LineItem     `json:"line_items"`
	ShippingLines      []ShippingLine `json:"shipping_lines"`
}

type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type ShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

type Order struct {
	ID          int64          `json:"id"`
	Number      string         `json:"number"`
	Status      string         `json:"status"`
	Currency    string         `json:"currency"`
	Total       string         `json:"total"`
	DateCreated string         `json:"date_created"`
	CustomerID  int64          `json:"customer_id"`
	LineItems   []OrderLineRow `json:"line_items"`
}

type OrderLineRow struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
}

type Product struct {
	ID               int64              `json:"id"`
	Name             string             `json:"name"`
	Slug             string             `json:"slug"`
	Type             string             `json:"type"`
	Status           string             `json:"status"`
	Description      string             `json:"description"`
	ShortDescription string             `json:"short_description"`
	Price            string             `json:"price"`
	RegularPrice     string             `json:"regular_price"`
	SalePrice        string             `json:"sale_price"`
	DateCreated      string             `json:"date_created"`
	StockStatus      string             `json:"stock_status"`
	Categories       []CategoryRef      `json:"categories"`
	Images           []Image            `json:"images"`
	Attributes       []ProductAttribute `json:"attributes"`
	Variations       []int64            `json:"variations"`
}

// IsVariable reports whether the product carries selectable variations.
func (p Product) IsVariable() bool {
	return p.Type == "variable"
}

// PriceValue parses Price; ok is false for unpriced products.
func (p Product) PriceValue() (decimal.Decimal, bool) {
	return parsePrice(p.Price)
}

// FirstImage returns the first image src or "".
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Src
}

type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
	Image *Image `json:"image,omitempty"`
}

type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type ProductAttribute struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Variation bool     `json:"variation"`
	Options   []string `json:"options"`
}

type Variation struct {
	ID         int64                `json:"id"`
	Price      string               `json:"price"`
	Image      *Image               `json:"image,omitempty"`
	Attributes []VariationAttribute `json:"attributes"`
}

// PriceValue parses Price; ok is false for unpriced variations.
func (v Variation) PriceValue() (decimal.Decimal, bool) {
	return parsePrice(v.Price)
}

type VariationAttribute struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

func parsePrice(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// countryList accepts both shapes the countries endpoint is seen to return:
// an array of {code,name,states} or an object of code -> name | {name}.
type countryList []Country

func (c *countryList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*c = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []Country
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*c = list
		return nil
	}

	entries, err := orderedObject(data)
	if err != nil {
		return err
	}
	out := make([]Country, 0, len(entries))
	for _, entry := range entries {
		out = append(out, Country{Code: entry.key, Name: nameOf(entry.key, entry.value)})
	}
	*c = out
	return nil
}

// stateList accepts an array of {code,name} or an object of code -> name.
type stateList []State

func (s *stateList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []State
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}

	entries, err := orderedObject(data)
	if err != nil {
		return err
	}
	out := make([]State, 0, len(entries))
	for _, entry := range entries {
		name := entry.key
		var str string
		if json.Unmarshal(entry.value, &str) == nil {
			name = str
		}
		out = append(out, State{Code: entry.key, Name: name})
	}
	*s = out
	return nil
}

func nameOf(code string, raw json.RawMessage) string {
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return str
	}
	var obj struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Name != "" {
		return obj.Name
	}
	return code
}

type objectEntry struct {
	key   string
	value json.RawMessage
}

// orderedObject decodes a JSON object keeping the key order of the payload.
func orderedObject(data []byte) ([]objectEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected JSON object or array")
	}
	var entries []objectEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		entries = append(entries, objectEntry{key: key, value: value})
	}
	return entries, nil
}
