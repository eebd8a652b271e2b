package render

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() InvoiceData {
	return InvoiceData{
		Number:        "INV-T1",
		IssuedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Issuer:        Issuer{Name: "MEYPARK S.L.", TaxID: "B12345678", Address: "Madrid", Contact: "facturacion@meypark.es"},
		Customer:      Customer{NIF: "B87654321", CompanyName: "Acme", Address: "Gran Vía 1", City: "Madrid", PostalCode: "28013", Email: "a@acme.es"},
		TransactionID: "T1",
		Plate:         "1234ABC",
		ZoneName:      "Centro Histórico",
		PaidAt:        time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		Minutes:       60,
		PaymentMethod: "cash",
		Amount:        2.5,
	}
}

func TestPDF_Render(t *testing.T) {
	doc, err := NewPDF().Render(context.Background(), sampleInvoice())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestPDF_RenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDF().Render(ctx, sampleInvoice())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetails(t *testing.T) {
	data := sampleInvoice()
	data.Extension = true
	data.PaymentMethod = "card"

	rows := details(data)
	assert.Equal(t, [2]string{"Tipo de Servicio", "Extensión de estacionamiento"}, rows[4])
	assert.Equal(t, [2]string{"Duración", "60 minutos"}, rows[5])
	assert.Equal(t, [2]string{"Método de Pago", "Tarjeta"}, rows[6])
}
