package model

import "time"

// Transaction is a kiosk payment eligible for invoicing.
type Transaction struct {
	ID                 string     `gorm:"primaryKey;size:128" json:"id"`
	Plate              string     `gorm:"size:32;not null" json:"plate"`
	ZoneID             string     `gorm:"size:64;not null" json:"zoneId"`
	Timestamp          time.Time  `gorm:"not null;index" json:"timestamp"`
	Amount             float64    `gorm:"not null" json:"amount"`
	PaymentMethod      string     `gorm:"size:32" json:"paymentMethod"`
	KioskID            string     `gorm:"size:128" json:"kioscoId,omitempty"`
	IsExtend           bool       `json:"isExtend"`
	Minutes            int        `json:"minutes"`
	InvoiceID          string     `gorm:"size:128;index" json:"invoiceId,omitempty"`
	InvoiceGeneratedAt *time.Time `json:"invoiceGeneratedAt,omitempty"`
	InvoiceURL         string     `gorm:"size:512" json:"invoiceUrl,omitempty"`
	CreatedAt          time.Time  `json:"-"`
	UpdatedAt          time.Time  `json:"-"`
}

// Invoiced reports whether an invoice was already issued.
func (t Transaction) Invoiced() bool {
	return t.InvoiceID != ""
}

// Invoice holds the billing party of an issued invoice and its document.
type Invoice struct {
	InvoiceID     string    `gorm:"primaryKey;size:128" json:"invoiceId"`
	TransactionID string    `gorm:"uniqueIndex;size:128;not null" json:"transactionId"`
	NIF           string    `gorm:"size:32;not null" json:"nif"`
	CompanyName   string    `gorm:"size:256;not null" json:"companyName"`
	Address       string    `gorm:"size:512;not null" json:"address"`
	City          string    `gorm:"size:128;not null" json:"city"`
	PostalCode    string    `gorm:"size:16;not null" json:"postalCode"`
	Email         string    `gorm:"size:256;not null" json:"email"`
	Phone         string    `gorm:"size:32" json:"phone,omitempty"`
	Filename      string    `gorm:"size:256;not null" json:"filename"`
	GeneratedAt   time.Time `gorm:"not null" json:"generatedAt"`
}
