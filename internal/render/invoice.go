// Package render produces the documents handed to invoice recipients.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Issuer is the company emitting the invoice.
type Issuer struct {
	Name    string
	TaxID   string
	Address string
	Contact string
}

// Customer is the billing party requested by the driver.
type Customer struct {
	NIF         string
	CompanyName string
	Address     string
	City        string
	PostalCode  string
	Email       string
	Phone       string
}

// InvoiceData is everything printed on one invoice.
type InvoiceData struct {
	Number        string
	IssuedAt      time.Time
	Issuer        Issuer
	Customer      Customer
	TransactionID string
	Plate         string
	ZoneName      string
	PaidAt        time.Time
	Extension     bool
	Minutes       int
	PaymentMethod string
	Amount        float64
}

// Renderer turns invoice data into a document.
type Renderer interface {
	Render(ctx context.Context, data InvoiceData) ([]byte, error)
}

var (
	primary   = &props.Color{Red: 102, Green: 126, Blue: 234}
	secondary = &props.Color{Red: 118, Green: 75, Blue: 162}
	darkGray  = &props.Color{Red: 108, Green: 117, Blue: 125}
	white     = &props.Color{Red: 255, Green: 255, Blue: 255}
)

const dateLayout = "02/01/2006"
const dateTimeLayout = "02/01/2006, 15:04:05"

// PDF renders A4 invoices with maroto.
type PDF struct{}

func NewPDF() *PDF {
	return &PDF{}
}

func (p *PDF) Render(ctx context.Context, data InvoiceData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(10).
		Build()
	m := maroto.New(cfg)

	header := props.Cell{BackgroundColor: primary}
	m.AddRow(14,
		text.NewCol(8, "FACTURA ELECTRÓNICA", props.Text{Size: 20, Style: fontstyle.Bold, Color: white, Top: 3, Left: 3}),
		text.NewCol(4, "Factura: "+data.Number, props.Text{Size: 9, Color: white, Top: 4, Align: align.Right, Right: 3}),
	).WithStyle(&header)
	m.AddRow(22,
		col.New(8).Add(
			text.New(data.Issuer.Name+" - Sistema de Parquímetros Inteligentes", props.Text{Size: 11, Color: white, Left: 3}),
			text.New("CIF: "+data.Issuer.TaxID, props.Text{Size: 8, Color: white, Top: 6, Left: 3}),
			text.New(data.Issuer.Address, props.Text{Size: 8, Color: white, Top: 10, Left: 3}),
			text.New(data.Issuer.Contact, props.Text{Size: 8, Color: white, Top: 14, Left: 3}),
		),
		col.New(4).Add(
			text.New("Fecha: "+data.IssuedAt.Format(dateLayout), props.Text{Size: 9, Color: white, Align: align.Right, Right: 3}),
			text.New("Vencimiento: "+data.IssuedAt.Format(dateLayout), props.Text{Size: 9, Color: white, Top: 5, Align: align.Right, Right: 3}),
		),
	).WithStyle(&header)

	m.AddRow(6, col.New(12))
	m.AddRow(10, text.NewCol(12, "DATOS DEL CLIENTE", props.Text{Size: 14, Style: fontstyle.Bold, Color: primary}))
	m.AddRow(24,
		col.New(7).Add(
			text.New("NIF/CIF: "+data.Customer.NIF, props.Text{Size: 10}),
			text.New("Razón Social: "+data.Customer.CompanyName, props.Text{Size: 10, Top: 5}),
			text.New("Dirección: "+data.Customer.Address, props.Text{Size: 10, Top: 10}),
			text.New(data.Customer.PostalCode+" "+data.Customer.City, props.Text{Size: 10, Top: 15}),
		),
		col.New(5).Add(customerContact(data.Customer)...),
	)
	m.AddRow(4, line.NewCol(12, props.Line{Color: primary, Thickness: 0.5}))

	m.AddRow(10, text.NewCol(12, "DETALLES DE LA TRANSACCIÓN", props.Text{Size: 14, Style: fontstyle.Bold, Color: primary, Top: 2}))
	for _, d := range details(data) {
		m.AddRow(7,
			text.NewCol(5, d[0]+":", props.Text{Size: 10, Color: darkGray}),
			text.NewCol(7, d[1], props.Text{Size: 10}),
		)
	}
	m.AddRow(4, line.NewCol(12, props.Line{Color: darkGray, Thickness: 0.3}))

	total := props.Cell{BackgroundColor: secondary}
	m.AddRow(16,
		text.NewCol(8, "TOTAL A PAGAR", props.Text{Size: 14, Style: fontstyle.Bold, Color: white, Top: 4, Left: 3}),
		text.NewCol(4, fmt.Sprintf("%.2f €", data.Amount), props.Text{Size: 18, Style: fontstyle.Bold, Color: white, Top: 3, Align: align.Right, Right: 3}),
	).WithStyle(&total)

	m.AddRow(6, col.New(12))
	m.AddRow(8, text.NewCol(12, "INFORMACIÓN FISCAL", props.Text{Size: 11, Style: fontstyle.Bold, Color: primary}))
	for _, note := range []string{
		"Esta factura cumple con la normativa de facturación electrónica española",
		"Ley 18/2022 \"Crea y Crece\" - Real Decreto 1007/2023",
		"Sistema Verifactu compatible",
		"Factura generada electrónicamente el " + data.IssuedAt.Format(dateTimeLayout),
	} {
		m.AddRow(5, text.NewCol(12, "- "+note, props.Text{Size: 8, Color: darkGray}))
	}

	m.AddRow(10, col.New(12))
	m.AddRow(8, text.NewCol(12, "Gracias por confiar en "+data.Issuer.Name, props.Text{Size: 12, Style: fontstyle.Bold, Color: primary, Align: align.Center}))
	m.AddRow(5, text.NewCol(12, data.Issuer.Contact, props.Text{Size: 8, Color: darkGray, Align: align.Center}))
	m.AddRow(5, text.NewCol(12, data.Issuer.Name+" - CIF: "+data.Issuer.TaxID+" - "+data.Issuer.Address, props.Text{Size: 7, Color: darkGray, Align: align.Center}))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice %s: %w", data.Number, err)
	}
	return doc.GetBytes(), nil
}

func customerContact(c Customer) []core.Component {
	components := []core.Component{text.New("Email: "+c.Email, props.Text{Size: 10})}
	if c.Phone != "" {
		components = append(components, text.New("Teléfono: "+c.Phone, props.Text{Size: 10, Top: 5}))
	}
	return components
}

func details(data InvoiceData) [][2]string {
	service := "Nuevo estacionamiento"
	if data.Extension {
		service = "Extensión de estacionamiento"
	}
	return [][2]string{
		{"ID de Transacción", data.TransactionID},
		{"Matrícula del Vehículo", data.Plate},
		{"Zona de Estacionamiento", data.ZoneName},
		{"Fecha y Hora", data.PaidAt.Format(dateTimeLayout)},
		{"Tipo de Servicio", service},
		{"Duración", fmt.Sprintf("%d minutos", data.Minutes)},
		{"Método de Pago", PaymentMethodLabel(data.PaymentMethod)},
	}
}

// PaymentMethodLabel is the printed name of a payment method.
func PaymentMethodLabel(method string) string {
	if method == "card" {
		return "Tarjeta"
	}
	return "Efectivo"
}
