/*
handlers.go - HTTP API handlers for the consortium schedule engine

PURPOSE:
  Exposes the service via REST API. Handles HTTP request/response and JSON
  serialization, and delegates everything else to service.Service.

ENDPOINTS:
  Quotas:
    GET    /api/quotas                       List quotas
    POST   /api/quotas                       Create quota
    GET    /api/quotas/{id}                  Get quota
    PUT    /api/quotas/{id}                  Replace quota terms
    DELETE /api/quotas/{id}                  Delete quota (cascades)
    GET    /api/quotas/{id}/schedule         Merged schedule
    GET    /api/quotas/{id}/credit-value     Corrected credit value (?at=)
    PUT    /api/quotas/{id}/payments/{n}     Record payment override
    DELETE /api/quotas/{id}/payments/{n}     Clear payment override

  Credit usages:
    GET    /api/quotas/{id}/credit-usages    List
    POST   /api/quotas/{id}/credit-usages    Add
    DELETE /api/credit-usages/{id}           Delete

  Indices:
    GET/POST /api/indices, PUT/DELETE /api/indices/{id}

  Directory:
    GET/POST /api/administrators, DELETE /api/administrators/{id}
    GET/POST /api/companies, DELETE /api/companies/{id}

  Scenarios (development only, resets the database):
    GET    /api/scenarios                    List demo portfolios
    POST   /api/scenarios/load               Load one ({"scenario_id": ...})

  Reports:
    GET    /api/reports/dashboard            ?company=&administrator=&quota=&status=&at=
    GET    /api/reports/monthly              ?company=&from=&to=
    GET    /api/reports/credit               ?company=&at=
    GET    /api/reports/credit-usage         ?company=&administrator=

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate group/quota number, duplicate index month)
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
	"github.com/warp/consorcio/report"
	"github.com/warp/consorcio/service"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Service *service.Service
	Logger  *zap.Logger
}

// NewHandler creates a new handler. A nil logger discards logs.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, Logger: logger}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// QUOTA HANDLERS
// =============================================================================

// ListQuotas returns all quotas.
func (h *Handler) ListQuotas(w http.ResponseWriter, r *http.Request) {
	quotas, err := h.Service.ListQuotas(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list quotas", err)
		return
	}
	dtos := make([]QuotaDTO, 0, len(quotas))
	for _, q := range quotas {
		dtos = append(dtos, toQuotaDTO(q))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateQuota creates a new quota.
func (h *Handler) CreateQuota(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuota(w, r)
	if !ok {
		return
	}
	created, err := h.Service.CreateQuota(r.Context(), q)
	if err != nil {
		h.fail(w, r, "Failed to create quota", err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuotaDTO(created))
}

// GetQuota returns one quota.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	q, err := h.Service.GetQuota(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get quota", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotaDTO(q))
}

// UpdateQuota replaces the terms of a quota.
func (h *Handler) UpdateQuota(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuota(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.UpdateQuota(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		h.fail(w, r, "Failed to update quota", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotaDTO(updated))
}

// DeleteQuota removes a quota with its payments and credit usages.
func (h *Handler) DeleteQuota(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteQuota(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete quota", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeQuota(w http.ResponseWriter, r *http.Request) (consortium.Quota, bool) {
	var req QuotaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return consortium.Quota{}, false
	}
	q, err := req.toQuota()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quota", err)
		return consortium.Quota{}, false
	}
	return q, true
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// GetSchedule returns the merged schedule of a quota.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rows, err := h.Service.Schedule(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to build schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, NewScheduleResponse(id, rows))
}

// GetCreditValue returns the corrected credit value at ?at= (default today).
func (h *Handler) GetCreditValue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	at, ok := dateParam(w, r, "at")
	if !ok {
		return
	}
	if at.IsZero() {
		at = h.Service.Today()
	}
	value, err := h.Service.CurrentCreditValue(r.Context(), id, at)
	if err != nil {
		h.fail(w, r, "Failed to compute credit value", err)
		return
	}
	writeJSON(w, http.StatusOK, CreditValueResponse{
		QuotaID:     id,
		At:          calendar.Format(at),
		CreditValue: num(value),
	})
}

// RecordPayment writes an override patch on one installment and returns
// the regenerated schedule.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, ok := installmentParam(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rows, err := h.Service.RecordPayment(r.Context(), id, n, req.toPatch())
	if err != nil {
		h.fail(w, r, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, NewScheduleResponse(id, rows))
}

// ClearPayment removes the override of one installment.
func (h *Handler) ClearPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, ok := installmentParam(w, r)
	if !ok {
		return
	}
	rows, err := h.Service.ClearPayment(r.Context(), id, n)
	if err != nil {
		h.fail(w, r, "Failed to clear payment", err)
		return
	}
	writeJSON(w, http.StatusOK, NewScheduleResponse(id, rows))
}

func installmentParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid installment number", err)
		return 0, false
	}
	return n, true
}

// =============================================================================
// CREDIT USAGE HANDLERS
// =============================================================================

// ListCreditUsages returns the credit usages of a quota.
func (h *Handler) ListCreditUsages(w http.ResponseWriter, r *http.Request) {
	usages, err := h.Service.ListCreditUsages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to list credit usages", err)
		return
	}
	dtos := make([]CreditUsageDTO, 0, len(usages))
	for _, u := range usages {
		dtos = append(dtos, toCreditUsageDTO(u))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddCreditUsage records a draw against a quota's credit.
func (h *Handler) AddCreditUsage(w http.ResponseWriter, r *http.Request) {
	var req CreditUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := optionalDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credit usage", err)
		return
	}
	u, err := h.Service.AddCreditUsage(r.Context(), chi.URLParam(r, "id"), consortium.CreditUsage{
		Description: req.Description,
		Date:        date,
		Amount:      req.Amount,
		Seller:      req.Seller,
	})
	if err != nil {
		h.fail(w, r, "Failed to add credit usage", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreditUsageDTO(u))
}

// DeleteCreditUsage removes a credit usage.
func (h *Handler) DeleteCreditUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCreditUsage(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete credit usage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// INDEX HANDLERS
// =============================================================================

// ListIndices returns every observation, newest month first.
func (h *Handler) ListIndices(w http.ResponseWriter, r *http.Request) {
	indices, err := h.Service.ListIndices(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list indices", err)
		return
	}
	dtos := make([]IndexDTO, 0, len(indices))
	for _, m := range indices {
		dtos = append(dtos, toIndexDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateIndex stores a new observation.
func (h *Handler) CreateIndex(w http.ResponseWriter, r *http.Request) {
	m, ok := decodeIndex(w, r)
	if !ok {
		return
	}
	created, err := h.Service.CreateIndex(r.Context(), m)
	if err != nil {
		h.fail(w, r, "Failed to create index", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIndexDTO(created))
}

// UpdateIndex replaces an observation.
func (h *Handler) UpdateIndex(w http.ResponseWriter, r *http.Request) {
	m, ok := decodeIndex(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.UpdateIndex(r.Context(), chi.URLParam(r, "id"), m)
	if err != nil {
		h.fail(w, r, "Failed to update index", err)
		return
	}
	writeJSON(w, http.StatusOK, toIndexDTO(updated))
}

// DeleteIndex removes an observation.
func (h *Handler) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteIndex(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete index", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeIndex(w http.ResponseWriter, r *http.Request) (consortium.MonthlyIndex, bool) {
	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return consortium.MonthlyIndex{}, false
	}
	month, err := optionalDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid index", err)
		return consortium.MonthlyIndex{}, false
	}
	return consortium.MonthlyIndex{Type: consortium.IndexType(req.Type), Month: month, Rate: req.Rate}, true
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListAdministrators returns every administrator.
func (h *Handler) ListAdministrators(w http.ResponseWriter, r *http.Request) {
	admins, err := h.Service.ListAdministrators(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list administrators", err)
		return
	}
	dtos := make([]ContactDTO, 0, len(admins))
	for _, a := range admins {
		dtos = append(dtos, ContactDTO{ID: a.ID, Name: a.Name, Phone: a.Phone, Email: a.Email})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAdministrator stores a new administrator.
func (h *Handler) CreateAdministrator(w http.ResponseWriter, r *http.Request) {
	var req ContactDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a, err := h.Service.CreateAdministrator(r.Context(), consortium.Administrator{Name: req.Name, Phone: req.Phone, Email: req.Email})
	if err != nil {
		h.fail(w, r, "Failed to create administrator", err)
		return
	}
	writeJSON(w, http.StatusCreated, ContactDTO{ID: a.ID, Name: a.Name, Phone: a.Phone, Email: a.Email})
}

// DeleteAdministrator removes an administrator.
func (h *Handler) DeleteAdministrator(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteAdministrator(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete administrator", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCompanies returns every company.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Service.ListCompanies(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list companies", err)
		return
	}
	dtos := make([]ContactDTO, 0, len(companies))
	for _, c := range companies {
		dtos = append(dtos, ContactDTO{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCompany stores a new company.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req ContactDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Service.CreateCompany(r.Context(), consortium.Company{Name: req.Name, Phone: req.Phone, Email: req.Email})
	if err != nil {
		h.fail(w, r, "Failed to create company", err)
		return
	}
	writeJSON(w, http.StatusCreated, ContactDTO{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email})
}

// DeleteCompany removes a company.
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCompany(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetDashboard returns the portfolio dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	f, ok := filterParams(w, r)
	if !ok {
		return
	}
	at, ok := dateParam(w, r, "at")
	if !ok {
		return
	}
	d, err := h.Service.Dashboard(r.Context(), f, at)
	if err != nil {
		h.fail(w, r, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}

// GetMonthlyReport returns installments grouped by due month.
func (h *Handler) GetMonthlyReport(w http.ResponseWriter, r *http.Request) {
	f, ok := filterParams(w, r)
	if !ok {
		return
	}
	from, ok := dateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateParam(w, r, "to")
	if !ok {
		return
	}
	months, err := h.Service.MonthlyPaid(r.Context(), f, from, to)
	if err != nil {
		h.fail(w, r, "Failed to build monthly report", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyDTOs(months))
}

// GetCreditReport returns available credit grouped by company.
func (h *Handler) GetCreditReport(w http.ResponseWriter, r *http.Request) {
	f, ok := filterParams(w, r)
	if !ok {
		return
	}
	at, ok := dateParam(w, r, "at")
	if !ok {
		return
	}
	groups, err := h.Service.CreditAvailability(r.Context(), f, at)
	if err != nil {
		h.fail(w, r, "Failed to build credit report", err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditGroupDTOs(groups))
}

// GetCreditUsageReport returns credit usages with seller and description
// totals.
func (h *Handler) GetCreditUsageReport(w http.ResponseWriter, r *http.Request) {
	f, ok := filterParams(w, r)
	if !ok {
		return
	}
	rep, err := h.Service.CreditUsageReport(r.Context(), f)
	if err != nil {
		h.fail(w, r, "Failed to build credit usage report", err)
		return
	}
	writeJSON(w, http.StatusOK, toUsageReportDTO(rep))
}

func filterParams(w http.ResponseWriter, r *http.Request) (report.Filter, bool) {
	q := r.URL.Query()
	f := report.Filter{
		CompanyID:       q.Get("company"),
		AdministratorID: q.Get("administrator"),
		QuotaID:         q.Get("quota"),
		Status:          report.Status(q.Get("status")),
	}
	if !f.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status (use ACTIVE or CONTEMPLATED)", nil)
		return f, false
	}
	return f, true
}

// dateParam parses an optional YYYY-MM-DD query parameter.
func dateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	t, err := optionalDate(name, r.URL.Query().Get(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name+" parameter", err)
		return time.Time{}, false
	}
	return t, true
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo portfolios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Scenarios())
}

// LoadScenario resets the database and loads a demo portfolio.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Service.LoadScenario(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, service.ErrUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// HELPERS
// =============================================================================

// fail maps a service error to its HTTP status.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case consortium.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case consortium.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case consortium.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, validationDetails(err))
	default:
		h.Logger.Error(message,
			zap.String("op", "api."+r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// validationDetails lists the field errors of a (possibly joined)
// validation failure.
func validationDetails(err error) any {
	var fields []map[string]string
	var collect func(error)
	collect = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				collect(inner)
			}
			return
		}
		var verr *consortium.ValidationError
		if errors.As(e, &verr) {
			fields = append(fields, map[string]string{"field": verr.Field, "message": verr.Message})
		}
	}
	collect(err)
	if len(fields) == 0 {
		return err
	}
	return fields
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	resp := ErrorResponse{Error: message}
	switch d := details.(type) {
	case nil:
	case error:
		resp.Details = d.Error()
	default:
		resp.Details = d
	}
	writeJSON(w, status, resp)
}
