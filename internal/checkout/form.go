package checkout

import (
	"strings"

	"github.com/angelmondragon/storefront/pkg/commerce"
)

// Option is one selectable country or state.
type Option struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Form is the checkout contact, address and selection data. State must be
// one of the resolved state options, or free text when that list is empty.
type Form struct {
	Email            string `json:"email" validate:"required,email"`
	FirstName        string `json:"first_name" validate:"required"`
	LastName         string `json:"last_name" validate:"required"`
	Address1         string `json:"address_1" validate:"required"`
	Address2         string `json:"address_2"`
	City             string `json:"city" validate:"required"`
	Postcode         string `json:"postcode" validate:"required"`
	Phone            string `json:"phone"`
	Country          string `json:"country" validate:"required"`
	State            string `json:"state"`
	ShippingMethodID string `json:"shipping_method_id" validate:"required"`
	PaymentGatewayID string `json:"payment_gateway_id" validate:"required"`
}

// FormPatch carries partial edits. Country is changed through
// Resolver.ChangeCountry so the state list follows it.
type FormPatch struct {
	Email            *string `json:"email" validate:"omitempty,email"`
	FirstName        *string `json:"first_name"`
	LastName         *string `json:"last_name"`
	Address1         *string `json:"address_1"`
	Address2         *string `json:"address_2"`
	City             *string `json:"city"`
	Postcode         *string `json:"postcode"`
	Phone            *string `json:"phone"`
	State            *string `json:"state"`
	ShippingMethodID *string `json:"shipping_method_id"`
	PaymentGatewayID *string `json:"payment_gateway_id"`
}

func prefill(profile *commerce.Customer) Form {
	if profile == nil {
		return Form{}
	}
	email := profile.Email
	if email == "" {
		email = profile.Billing.Email
	}
	return Form{
		Email:     email,
		FirstName: firstNonEmpty(profile.FirstName, profile.Billing.FirstName),
		LastName:  firstNonEmpty(profile.LastName, profile.Billing.LastName),
		Address1:  profile.Billing.Address1,
		Address2:  profile.Billing.Address2,
		City:      profile.Billing.City,
		Postcode:  profile.Billing.Postcode,
		Phone:     profile.Billing.Phone,
		Country:   profile.Billing.Country,
		State:     profile.Billing.State,
	}
}

// normalized returns a copy of the patch with surrounding whitespace removed.
func (p FormPatch) normalized() FormPatch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		out := strings.TrimSpace(*v)
		return &out
	}
	return FormPatch{
		Email:            trim(p.Email),
		FirstName:        trim(p.FirstName),
		LastName:         trim(p.LastName),
		Address1:         trim(p.Address1),
		Address2:         trim(p.Address2),
		City:             trim(p.City),
		Postcode:         trim(p.Postcode),
		Phone:            trim(p.Phone),
		State:            trim(p.State),
		ShippingMethodID: trim(p.ShippingMethodID),
		PaymentGatewayID: trim(p.PaymentGatewayID),
	}
}

func (f *Form) apply(p FormPatch) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&f.Email, p.Email)
	set(&f.FirstName, p.FirstName)
	set(&f.LastName, p.LastName)
	set(&f.Address1, p.Address1)
	set(&f.Address2, p.Address2)
	set(&f.City, p.City)
	set(&f.Postcode, p.Postcode)
	set(&f.Phone, p.Phone)
	set(&f.State, p.State)
	set(&f.ShippingMethodID, p.ShippingMethodID)
	set(&f.PaymentGatewayID, p.PaymentGatewayID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func hasOption(options []Option, code string) bool {
	for _, opt := range options {
		if opt.Code == code {
			return true
		}
	}
	return false
}
