package checkout

import (
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/commerce"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/validation"
)

const defaultShippingTitle = "Shipping"

type AssembleInput struct {
	Cart            cart.Cart
	Form            Form
	ShippingMethods []commerce.ShippingMethod
	PaymentGateways []commerce.PaymentGateway
	Countries       []Option
	// States is the resolved state list of Form.Country. When it is not
	// free text the form's state must be one of its codes.
	States        []Option
	StateFreeText bool
	CustomerID    int64
}

// Assemble builds the order request for a submission. It performs no I/O.
func Assemble(in AssembleInput) (*commerce.OrderRequest, error) {
	if in.Cart.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithDetails(map[string]string{"cart": "must contain at least one item"})
	}
	if len(in.Countries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoShippingZone, "no eligible shipping country")
	}
	if len(in.ShippingMethods) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoShippingMethod, "no shipping method available")
	}
	if err := validation.Struct(in.Form); err != nil {
		return nil, err
	}

	details := map[string]string{}
	if !hasOption(in.Countries, in.Form.Country) {
		details["country"] = "is not in the shipping zone"
	}
	if !in.StateFreeText && len(in.States) > 0 && !hasOption(in.States, in.Form.State) {
		details["state"] = "is not a state of the selected country"
	}
	method, ok := findMethod(in.ShippingMethods, in.Form.ShippingMethodID)
	if !ok {
		details["shipping_method_id"] = "is not an available shipping method"
	}
	gateway, gwOK := findGateway(in.PaymentGateways, in.Form.PaymentGatewayID)
	if !gwOK {
		details["payment_gateway_id"] = "is not an available payment method"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}

	address := commerce.Address{
		FirstName: in.Form.FirstName,
		LastName:  in.Form.LastName,
		Address1:  in.Form.Address1,
		Address2:  in.Form.Address2,
		City:      in.Form.City,
		State:     in.Form.State,
		Postcode:  in.Form.Postcode,
		Country:   in.Form.Country,
		Email:     in.Form.Email,
		Phone:     in.Form.Phone,
	}

	items := make([]commerce.LineItem, 0, len(in.Cart.Lines))
	for _, line := range in.Cart.Lines {
		items = append(items, commerce.LineItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	total := "0.00"
	if cost := method.FlatCost(); cost != nil {
		total = cost.StringFixed(2)
	}
	title := method.Title
	if title == "" {
		title = defaultShippingTitle
	}

	return &commerce.OrderRequest{
		PaymentMethod:      gateway.ID,
		PaymentMethodTitle: gateway.Title,
		SetPaid:            false,
		CustomerID:         in.CustomerID,
		Billing:            address,
		Shipping:           address,
		LineItems:          items,
		ShippingLines: []commerce.ShippingLine{{
			MethodID:    methodKey(method),
			MethodTitle: title,
			Total:       total,
		}},
	}, nil
}
