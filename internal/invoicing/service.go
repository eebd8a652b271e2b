// Package invoicing issues electronic invoices for kiosk payments.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"meypark-backend/config"
	"meypark-backend/internal/apperr"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/model"
	"meypark-backend/internal/render"
	"meypark-backend/internal/store"
)

var (
	errTransactionNotFound = apperr.NotFound("Transacción no encontrada")
	errTransactionExpired  = apperr.Expired("La transacción ha expirado")
	errAlreadyInvoiced     = apperr.AlreadyProcessed("Esta transacción ya ha sido facturada")
	errMissingBilling      = apperr.Validation("Faltan datos requeridos")
	errIncomplete          = apperr.Validation("Datos de transacción incompletos")
	errInvoiceNotGenerated = apperr.NotFound("Factura no generada")
	errFileNotFound        = apperr.NotFound("Archivo no encontrado")
)

// TransactionView is a transaction enriched with its zone name.
type TransactionView struct {
	model.Transaction
	ZoneName string `json:"zoneName"`
}

// BillingRequest carries the billing party for one transaction.
type BillingRequest struct {
	TransactionID string `json:"transactionId"`
	NIF           string `json:"nif"`
	CompanyName   string `json:"companyName"`
	Address       string `json:"address"`
	City          string `json:"city"`
	PostalCode    string `json:"postalCode"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
}

func (r BillingRequest) complete() bool {
	for _, v := range []string{r.TransactionID, r.NIF, r.CompanyName, r.Address, r.City, r.PostalCode, r.Email} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// TransactionRequest is a payment reported by a kiosk.
type TransactionRequest struct {
	ID            string     `json:"id"`
	Plate         string     `json:"plate"`
	ZoneID        string     `json:"zoneId"`
	Timestamp     *time.Time `json:"timestamp"`
	Amount        *float64   `json:"amount"`
	PaymentMethod string     `json:"paymentMethod"`
	KioskID       string     `json:"kioscoId"`
	IsExtend      bool       `json:"isExtend"`
	Minutes       int        `json:"minutes"`
}

// TestTransactionRequest overrides the defaults of a demo transaction.
type TestTransactionRequest struct {
	Plate         string   `json:"plate"`
	ZoneID        string   `json:"zoneId"`
	Amount        *float64 `json:"amount"`
	PaymentMethod string   `json:"paymentMethod"`
	IsExtend      bool     `json:"isExtend"`
	Minutes       int      `json:"minutes"`
}

// Issued describes a generated invoice.
type Issued struct {
	InvoiceID string
	URL       string
}

// Service owns the invoicing rules. Invoice generation is serialized so a
// transaction gets at most one document.
type Service struct {
	store    store.Store
	renderer render.Renderer
	dir      string
	baseURL  string
	expiry   time.Duration
	zones    map[string]config.ZoneInfo
	issuer   render.Issuer
	ids      *snowflake.Node
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics

	mu sync.Mutex
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates the invoicing service and makes sure the document directory exists.
func NewService(cfg *config.InvoicingConfig, st store.Store, r render.Renderer, opts ...Option) (*Service, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("create id generator: %w", err)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create invoice directory %s: %w", cfg.Dir, err)
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = 30 * 24 * time.Hour
	}
	s := &Service{
		store:    st,
		renderer: r,
		dir:      cfg.Dir,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		expiry:   expiry,
		zones:    cfg.Zones,
		issuer:   render.Issuer{
			Name:    cfg.Issuer.Name,
			TaxID:   cfg.Issuer.TaxID,
			Address: cfg.Issuer.Address,
			Contact: cfg.Issuer.Contact,
		},
		ids: node,
		now: time.Now,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ZoneName resolves a zone id through the catalog.
func (s *Service) ZoneName(zoneID string) string {
	if z, ok := s.zones[zoneID]; ok {
		return z.Name
	}
	return "Zona " + zoneID
}

// Transaction returns an invoiceable transaction.
func (s *Service) Transaction(ctx context.Context, id string) (*TransactionView, error) {
	tx, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.now().Sub(tx.Timestamp) > s.expiry {
		return nil, errTransactionExpired
	}
	return &TransactionView{Transaction: *tx, ZoneName: s.ZoneName(tx.ZoneID)}, nil
}

func (s *Service) load(ctx context.Context, id string) (*model.Transaction, error) {
	tx, err := s.store.Transaction(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if tx == nil {
		return nil, errTransactionNotFound
	}
	return tx, nil
}

// RecordTransaction stores a payment reported by a kiosk.
func (s *Service) RecordTransaction(ctx context.Context, req TransactionRequest) (*model.Transaction, error) {
	if req.ID == "" || req.Plate == "" || req.ZoneID == "" || req.Amount == nil || *req.Amount == 0 {
		return nil, errIncomplete
	}
	tx := &model.Transaction{
		ID:            req.ID,
		Plate:         req.Plate,
		ZoneID:        req.ZoneID,
		Amount:        *req.Amount,
		PaymentMethod: req.PaymentMethod,
		KioskID:       req.KioskID,
		IsExtend:      req.IsExtend,
		Minutes:       req.Minutes,
	}
	if req.Timestamp != nil {
		tx.Timestamp = *req.Timestamp
	} else {
		tx.Timestamp = s.now().UTC()
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info("transaction recorded",
		zap.String("transaction_id", tx.ID),
		zap.String("plate", tx.Plate),
		zap.String("zone_id", tx.ZoneID),
		zap.Float64("amount", tx.Amount))
	return tx, nil
}

// CreateTestTransaction stores a demo transaction and returns it with the
// billing portal link.
func (s *Service) CreateTestTransaction(ctx context.Context, req TestTransactionRequest) (*model.Transaction, string, error) {
	tx := &model.Transaction{
		ID:            "TXN_" + s.ids.Generate().String(),
		Plate:         orDefault(req.Plate, "1234ABC"),
		ZoneID:        orDefault(req.ZoneID, "ZONA_001"),
		Timestamp:     s.now().UTC(),
		Amount:        2.50,
		PaymentMethod: orDefault(req.PaymentMethod, "cash"),
		KioskID:       "DEMO_KIOSCO",
		IsExtend:      req.IsExtend,
		Minutes:       60,
	}
	if req.Amount != nil && *req.Amount != 0 {
		tx.Amount = *req.Amount
	}
	if req.Minutes > 0 {
		tx.Minutes = req.Minutes
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		return nil, "", apperr.Internal(err)
	}
	s.log.Info("test transaction created", zap.String("transaction_id", tx.ID))
	return tx, s.baseURL + "/facturacion.html?transactionId=" + tx.ID, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// GenerateInvoice renders the invoice document for a transaction and records
// it. A transaction is invoiced at most once.
func (s *Service) GenerateInvoice(ctx context.Context, req BillingRequest) (issued *Issued, err error) {
	defer func() {
		switch {
		case err == nil:
			s.metrics.Invoice(metrics.ResultOK)
		default:
			s.metrics.Invoice(metrics.ResultFailed)
		}
	}()

	if !req.complete() {
		return nil, errMissingBilling
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.load(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Invoiced() {
		return nil, errAlreadyInvoiced
	}

	now := s.now()
	inv := &model.Invoice{
		InvoiceID:     "INV_" + uuid.NewString(),
		TransactionID: tx.ID,
		NIF:           req.NIF,
		CompanyName:   req.CompanyName,
		Address:       req.Address,
		City:          req.City,
		PostalCode:    req.PostalCode,
		Email:         req.Email,
		Phone:         req.Phone,
		Filename:      "factura_" + tx.ID + ".pdf",
		GeneratedAt:   now.UTC(),
	}

	doc, err := s.renderer.Render(ctx, render.InvoiceData{
		Number:   "INV-" + tx.ID,
		IssuedAt: now,
		Issuer:   s.issuer,
		Customer: render.Customer{
			NIF:         req.NIF,
			CompanyName: req.CompanyName,
			Address:     req.Address,
			City:        req.City,
			PostalCode:  req.PostalCode,
			Email:       req.Email,
			Phone:       req.Phone,
		},
		TransactionID: tx.ID,
		Plate:         tx.Plate,
		ZoneName:      s.ZoneName(tx.ZoneID),
		PaidAt:        tx.Timestamp,
		Extension:     tx.IsExtend,
		Minutes:       tx.Minutes,
		PaymentMethod: tx.PaymentMethod,
		Amount:        tx.Amount,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	tmp, err := s.writeTemp(doc)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer os.Remove(tmp)

	url := s.baseURL + "/invoices/" + inv.Filename
	if err := s.store.RecordInvoice(ctx, inv, url); err != nil {
		if errors.Is(err, store.ErrAlreadyInvoiced) {
			return nil, errAlreadyInvoiced
		}
		return nil, apperr.Internal(err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, inv.Filename)); err != nil {
		return nil, apperr.Internal(fmt.Errorf("store invoice document: %w", err))
	}

	s.log.Info("invoice generated",
		zap.String("invoice_id", inv.InvoiceID),
		zap.String("transaction_id", tx.ID))
	return &Issued{InvoiceID: inv.InvoiceID, URL: url}, nil
}

func (s *Service) writeTemp(doc []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, ".factura-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(doc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// InvoiceStatus returns the transaction once it has been invoiced.
func (s *Service) InvoiceStatus(ctx context.Context, transactionID string) (*model.Transaction, error) {
	tx, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !tx.Invoiced() {
		return nil, errInvoiceNotGenerated
	}
	return tx, nil
}

// DocumentPath resolves a rendered document by file name. Names that would
// leave the invoice directory are rejected.
func (s *Service) DocumentPath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", errFileNotFound
	}
	path := filepath.Join(s.dir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", errFileNotFound
	}
	return path, nil
}

// Stats aggregates the stored transactions.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return store.Stats{}, apperr.Internal(err)
	}
	return st, nil
}
