package statement

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/theater-billing/internal/common"
	"github.com/noah-isme/theater-billing/internal/playbill"
)

// Handler exposes statement endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	maxBatch int
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service  *Service
	MaxBatch int
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 100
	}
	return &Handler{
		service:  cfg.Service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		maxBatch: maxBatch,
	}
}

// Routes mounts the statement endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/statements", h.Create)
	r.Post("/statements/batch", h.Batch)
	r.Get("/rates", h.Rates)
}

type createRequest struct {
	Invoice json.RawMessage `json:"invoice" validate:"required"`
	Plays   json.RawMessage `json:"plays" validate:"required"`
}

type batchRequest struct {
	Invoices json.RawMessage `json:"invoices" validate:"required"`
	Plays    json.RawMessage `json:"plays" validate:"required"`
}

// Create handles POST /api/v1/statements.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "statement service not configured", nil)
		return
	}
	var req createRequest
	if err := h.decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	invoice, err := playbill.DecodeInvoice(bytes.NewReader(req.Invoice))
	if err != nil {
		common.WriteError(w, invalidRequest(err))
		return
	}
	catalog, err := playbill.DecodePlays(bytes.NewReader(req.Plays))
	if err != nil {
		common.WriteError(w, invalidRequest(err))
		return
	}

	res, err := h.service.Generate(r.Context(), invoice, catalog)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if common.PrefersText(r) {
		w.Header().Set("X-Statement-ID", res.ID)
		common.Text(w, http.StatusOK, res.Text)
		return
	}
	common.Data(w, http.StatusOK, res, nil)
}

// Batch handles POST /api/v1/statements/batch.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "statement service not configured", nil)
		return
	}
	var req batchRequest
	if err := h.decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	invoices, err := playbill.DecodeInvoices(bytes.NewReader(req.Invoices))
	if err != nil {
		common.WriteError(w, invalidRequest(err))
		return
	}
	if len(invoices) > h.maxBatch {
		common.WriteError(w, common.NewAppError(CodeInvalidRequest, "too many invoices in batch", http.StatusBadRequest, nil).
			WithDetails(map[string]int{"max": h.maxBatch}))
		return
	}
	catalog, err := playbill.DecodePlays(bytes.NewReader(req.Plays))
	if err != nil {
		common.WriteError(w, invalidRequest(err))
		return
	}

	items, err := h.service.GenerateBatch(r.Context(), invoices, catalog)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	failed := 0
	for _, item := range items {
		if item.Error != nil {
			failed++
		}
	}
	common.Data(w, http.StatusOK, items, map[string]int{"total": len(items), "failed": failed})
}

// Rates handles GET /api/v1/rates.
func (h *Handler) Rates(w http.ResponseWriter, _ *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "statement service not configured", nil)
		return
	}
	common.Data(w, http.StatusOK, h.service.Rates(), nil)
}

func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidRequest(err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
			return invalidRequest(err).WithDetails(map[string][]string{"missing": fields})
		}
		return invalidRequest(err)
	}
	return nil
}

func invalidRequest(err error) *common.AppError {
	return common.NewAppError(CodeInvalidRequest, "invalid request body", http.StatusBadRequest, err)
}
