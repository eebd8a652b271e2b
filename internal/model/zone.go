package model

// Zone is a priced parking area owned by a Company.
type Zone struct {
	ID           string  `json:"id"`
	CompanyID    string  `json:"companyId"`
	Name         string  `json:"name"`
	PricePerHour float64 `json:"pricePerHour"`
	MaxHours     float64 `json:"maxHours"`
	Color        string  `json:"color,omitempty"`
	IsActive     bool    `json:"isActive"`
}
