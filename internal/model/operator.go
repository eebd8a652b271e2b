package model

// Operator is a kiosk/dashboard user belonging to a Company.
// PasswordHash is persisted but stripped from every client-facing view.
type Operator struct {
	ID           string `json:"id"`
	CompanyID    string `json:"companyId"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Role         string `json:"role"`
}
