package enums

// StateKey names a value persisted in a storefront session.
type StateKey string

const (
	StateKeyCart       StateKey = "cart"
	StateKeyCustomer   StateKey = "customer"
	StateKeyIsLoggedIn StateKey = "isLoggedIn"
)

func (k StateKey) String() string {
	return string(k)
}
