// Package api - HTTP handlers for the calculation endpoints
// Handlers decode, validate, call the engine and record the result.
// All pricing logic lives in core packages.
package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"embroidery-pricing/adapters/storage"
	"embroidery-pricing/core/engine"
	"embroidery-pricing/core/money"
	"embroidery-pricing/internal/errors"
	"embroidery-pricing/internal/metrics"
)

// decode reads a JSON body into dst and validates it
func (s *Server) decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.Newf(errors.TypePayloadTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
		}
		if stderrors.Is(err, io.EOF) {
			return errors.DomainInput("request body is empty")
		}
		return errors.Wrap(errors.TypeDomainInput, "invalid JSON body", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError flattens validator errors into one DOMAIN_INPUT message
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.TypeDomainInput, "invalid request", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.DomainInput(strings.Join(parts, "; "))
}

// record stores a calculation and sets the calculation header. Storage
// failures are logged; the calculation itself already succeeded.
func (s *Server) record(w http.ResponseWriter, r *http.Request, kind, profileID string, total money.Money, request, result interface{}) {
	if s.store == nil {
		return
	}
	tenant := tenantFrom(r.Context())
	rec, err := storage.NewRecord(kind, tenant, profileID, total, request, result)
	if err == nil {
		err = s.store.Save(r.Context(), rec)
	}
	if err != nil {
		s.logger.Warn("calculation not recorded",
			zap.String("kind", kind),
			zap.String("tenant_id", tenant),
			zap.Error(err))
		return
	}
	w.Header().Set(CalculationHeader, rec.ID)
}

// handleShipping handles POST /v1/shipping/calculate
func (s *Server) handleShipping(w http.ResponseWriter, r *http.Request) {
	var req ShippingRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.engine.CalculateShipping(r.Context(), req.toEngine(tenantFrom(r.Context())))
	if err != nil {
		writeError(w, err)
		return
	}

	s.record(w, r, metrics.KindShipping, result.ProfileID, result.Total, req, result)
	writeJSON(w, result, http.StatusOK)
}

// handleRates handles POST /v1/shipping/rates
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	var req RatesRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.engine.ResolveShippingRates(r.Context(), req.toEngine(tenantFrom(r.Context())))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := RatesResponse{ProfileID: result.ProfileID, Rates: result.Rates}
	s.record(w, r, metrics.KindRates, result.ProfileID, result.Cheapest(), req, resp)
	writeJSON(w, resp, http.StatusOK)
}

// handlePricing handles POST /v1/pricing/calculate
func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.engine.PriceOrder(r.Context(), req.toEngine(tenantFrom(r.Context())))
	if err != nil {
		writeError(w, err)
		return
	}

	s.record(w, r, metrics.KindPricing, result.ProfileID, result.Total, req, result)
	writeJSON(w, result, http.StatusOK)
}

// handleQuote handles POST /v1/digitizing/quote
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.engine.DigitizingQuote(r.Context(), req.toEngine(tenantFrom(r.Context())))
	if err != nil {
		writeError(w, err)
		return
	}

	s.record(w, r, metrics.KindDigitizing, "", result.TotalPrice, req, result)
	writeJSON(w, result, http.StatusOK)
}

// handleQuoteBatch handles POST /v1/digitizing/quotes. Batches are not recorded.
func (s *Server) handleQuoteBatch(w http.ResponseWriter, r *http.Request) {
	var req QuoteBatchRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant := tenantFrom(r.Context())
	reqs := make([]engine.QuoteRequest, len(req.Quotes))
	for i, q := range req.Quotes {
		reqs[i] = q.toEngine(tenant)
	}

	results, err := s.engine.QuoteBatch(r.Context(), reqs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, QuoteBatchResponse{Quotes: results}, http.StatusOK)
}

// handleGetCalculation handles GET /v1/calculations/{id}
func (s *Server) handleGetCalculation(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errors.NotFound("calculation", chi.URLParam(r, "id")))
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	// records are only visible to their own tenant
	if rec.TenantID != tenantFrom(r.Context()) {
		writeError(w, errors.NotFound("calculation", id))
		return
	}
	writeJSON(w, rec, http.StatusOK)
}

// handleListCalculations handles GET /v1/calculations?kind=&limit=&offset=
func (s *Server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, map[string]interface{}{"calculations": []*storage.Record{}, "count": 0}, http.StatusOK)
		return
	}

	q := r.URL.Query()
	filter := &storage.ListFilter{
		TenantID:    tenantFrom(r.Context()),
		Kind:        q.Get("kind"),
		Fingerprint: q.Get("fingerprint"),
		Limit:       50,
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if raw := q.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, errors.DomainInput(fmt.Sprintf("%s must be a non-negative integer", name)))
				return
			}
			*dst = n
		}
	}

	records, err := s.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []*storage.Record{}
	}
	writeJSON(w, map[string]interface{}{
		"calculations": records,
		"count":        len(records),
	}, http.StatusOK)
}
