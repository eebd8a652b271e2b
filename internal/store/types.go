package store

import "errors"

// ErrAlreadyInvoiced is returned when a transaction already carries an invoice.
var ErrAlreadyInvoiced = errors.New("transaction already invoiced")

// Stats summarizes the stored transactions.
type Stats struct {
	TotalTransactions    int64
	InvoicedTransactions int64
	TotalAmount          float64
	InvoicedAmount       float64
}

// InvoiceRate is the share of transactions that have been invoiced.
func (s Stats) InvoiceRate() float64 {
	if s.TotalTransactions == 0 {
		return 0
	}
	return float64(s.InvoicedTransactions) / float64(s.TotalTransactions)
}
