package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finledger/internal/services"
)

// IntegrityHandler exposes ledger validation and manual reconciliation.
type IntegrityHandler struct {
	integrityService services.IntegrityServicer
	auditService     services.AuditServicer
}

// NewIntegrityHandler creates a new IntegrityHandler.
func NewIntegrityHandler(integrityService services.IntegrityServicer, auditService services.AuditServicer) *IntegrityHandler {
	return &IntegrityHandler{integrityService: integrityService, auditService: auditService}
}

// Status returns the latest validation report, running a scan if none is cached
// @Summary     Integrity status
// @Tags        integrity
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ValidationReport "Latest validation report"
// @Router      /integrity/status [get]
func (h *IntegrityHandler) Status(c *gin.Context) {
	if report, ok := h.integrityService.LatestReport(); ok {
		c.JSON(http.StatusOK, gin.H{"report": report, "cached": true})
		return
	}

	report, err := h.integrityService.RunValidations()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report, "cached": false})
}

// Validate runs a fresh read-only integrity scan
// @Summary     Validate ledger
// @Tags        integrity
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ValidationReport "Validation report"
// @Router      /integrity/validate [post]
func (h *IntegrityHandler) Validate(c *gin.Context) {
	report, err := h.integrityService.RunValidations()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// Reconcile removes orphans and recomputes every account balance
// @Summary     Manual reconciliation
// @Description Validate, remove orphaned transactions, reconcile all accounts and validate again.
// @Tags        integrity
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ManualReconciliationReport "Reconciliation report"
// @Failure     429 {object} ErrorResponse "Too many reconciliations"
// @Router      /integrity/reconcile [post]
func (h *IntegrityHandler) Reconcile(c *gin.Context) {
	report, err := h.integrityService.RunManualReconciliation()
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "MANUAL_RECONCILIATION", "ledger", "", c.ClientIP(),
		map[string]interface{}{
			"orphans_removed": report.OrphansRemoved,
			"accounts_fixed":  report.Reconciled.Fixed,
		})

	c.JSON(http.StatusOK, gin.H{"report": report})
}
