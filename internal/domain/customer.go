package domain

// DefaultTier is shown for customers without a loyalty tier.
const DefaultTier = "Standard"

// Customer is one entry of the CRM customer list.
type Customer struct {
	CustomerID string `json:"customerId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ZipCode    string `json:"zipCode"`
	Tier       string `json:"tier"`
}
