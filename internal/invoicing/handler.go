package invoicing

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meypark-backend/internal/apperr"
	"meypark-backend/internal/mw"
)

// Handler exposes the invoicing service over HTTP. Most failures answer 200
// with success=false, which is what the billing portal expects.
type Handler struct {
	svc   *Service
	cache *mw.ResponseCache
	log   *zap.Logger
}

// NewHandler creates the invoicing HTTP handler. cache may be nil.
func NewHandler(svc *Service, cache *mw.ResponseCache, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, cache: cache, log: log}
}

func (h *Handler) invalidate() {
	if h.cache != nil {
		h.cache.Flush()
	}
}

func (h *Handler) logInternal(msg string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.log.Error(msg, zap.Error(err))
	}
}

// GetTransaction handles GET /api/transaction/:id.
func (h *Handler) GetTransaction(c *gin.Context) {
	view, err := h.svc.Transaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logInternal("load transaction failed", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": apperr.PublicMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": view})
}

// GenerateInvoice handles POST /api/generate-invoice.
func (h *Handler) GenerateInvoice(c *gin.Context) {
	var req BillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "errorMessage": errMissingBilling.Error()})
		return
	}
	issued, err := h.svc.GenerateInvoice(c.Request.Context(), req)
	if err != nil {
		h.logInternal("generate invoice failed", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "errorMessage": apperr.PublicMessage(err)})
		return
	}
	h.invalidate()
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"invoiceId":  issued.InvoiceID,
		"invoiceUrl": issued.URL,
	})
}

// GetInvoiceStatus handles GET /api/invoice-status/:transactionId.
func (h *Handler) GetInvoiceStatus(c *gin.Context) {
	tx, err := h.svc.InvoiceStatus(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		h.logInternal("load invoice status failed", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "errorMessage": apperr.PublicMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"invoiceId":   tx.InvoiceID,
		"invoiceUrl":  tx.InvoiceURL,
		"generatedAt": tx.InvoiceGeneratedAt,
	})
}

// GetDocument handles GET /invoices/:filename.
func (h *Handler) GetDocument(c *gin.Context) {
	filename := c.Param("filename")
	path, err := h.svc.DocumentPath(filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": apperr.PublicMessage(err)})
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.File(path)
}

// PostTransaction handles POST /api/transactions.
func (h *Handler) PostTransaction(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": errIncomplete.Error()})
		return
	}
	tx, err := h.svc.RecordTransaction(c.Request.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if apperr.KindOf(err) == apperr.KindInternal {
			status = http.StatusInternalServerError
			h.log.Error("record transaction failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"success": false, "error": apperr.PublicMessage(err)})
		return
	}
	h.invalidate()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Transacción registrada correctamente",
		"transactionId": tx.ID,
	})
}

// PostTestTransaction handles POST /api/create-test-transaction.
func (h *Handler) PostTestTransaction(c *gin.Context) {
	var req TestTransactionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}
	tx, qrURL, err := h.svc.CreateTestTransaction(c.Request.Context(), req)
	if err != nil {
		h.log.Error("create test transaction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": apperr.PublicMessage(err)})
		return
	}
	h.invalidate()
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": tx, "qrUrl": qrURL})
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("load stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": apperr.PublicMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalTransactions":    st.TotalTransactions,
		"invoicedTransactions": st.InvoicedTransactions,
		"totalAmount":          fmt.Sprintf("%.2f", st.TotalAmount),
		"invoicedAmount":       fmt.Sprintf("%.2f", st.InvoicedAmount),
		"invoiceRate":          st.InvoiceRate(),
	})
}
