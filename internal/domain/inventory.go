package domain

// Inventory statuses used by the fixtures and the assistant.
const (
	InventoryAvailable    = "Available"
	InventoryLowStock     = "Low stock"
	InventoryBackorder    = "Backorder"
	InventoryPreorder     = "Preorder"
	InventoryDiscontinued = "Discontinued"
)

// InventoryItem is the stock position of one SKU at one location and channel.
type InventoryItem struct {
	SKUCode          string `json:"skuCode"`
	ProductName      string `json:"productName"`
	Location         string `json:"location"`
	Channel          string `json:"channel"`
	Status           string `json:"status"`
	AvailToPurchase  int    `json:"availToPurchase"`
	AvailToBackorder int    `json:"availToBackorder"`
	AvailToPreorder  int    `json:"availToPreorder"`
	ETA              string `json:"eta,omitempty"`
}

// NeedsReorder reports whether the item is short enough to suggest a reorder.
func (i *InventoryItem) NeedsReorder() bool {
	return i.Status == InventoryLowStock || i.Status == InventoryBackorder
}
