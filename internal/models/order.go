package models

// IncomingOrder is the order abstraction consumed from the order-taking
// system. The kitchen holds only the identifiers it needs to route and to
// reference back; the order itself stays owned by the orders collaborator.
type IncomingOrder struct {
	ID       string      `json:"id"`
	HubID    string      `json:"hub_id"`
	Priority int         `json:"priority"`
	Items    []OrderLine `json:"items"`
}

// OrderLine is one line item of an incoming order with its target station,
// resolved externally from the menu/station mapping.
type OrderLine struct {
	ItemID  string `json:"item_id"`
	Station string `json:"station"`
	Name    string `json:"name,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Station is a preparation station as exposed by the orders collaborator.
type Station struct {
	ID     string `gorm:"primary_key" json:"id"`
	HubID  string `gorm:"primary_key" json:"hub_id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// TableName sets the stations table name
func (Station) TableName() string {
	return "kitchen_stations"
}
