package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ipo-tracker/internal/alerts"
	"ipo-tracker/internal/classify"
	apperrors "ipo-tracker/internal/errors"
	"ipo-tracker/internal/models"
	"ipo-tracker/internal/pricing"
	"ipo-tracker/internal/resilience"
	"ipo-tracker/internal/rules"
	"ipo-tracker/internal/store"
	"ipo-tracker/internal/valuation"
)

// ResolveResponse is the body of /api/alert-rules/resolve.
type ResolveResponse struct {
	models.Thresholds
	Integrity []string `json:"integrity,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.Check(r.Context())
	status := http.StatusOK
	if health.Status == resilience.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

// portfolio loads the user's holdings and values them at live prices.
func (s *Server) portfolio(r *http.Request) (models.PortfolioSummary, error) {
	records, err := s.store.ListIpos(r.Context(), userID(r), store.IpoFilter{PortfolioOnly: true})
	if err != nil {
		return models.PortfolioSummary{}, err
	}
	quotes, err := pricing.FetchQuotes(r.Context(), s.quotes, records, s.concurrency)
	if err != nil {
		return models.PortfolioSummary{}, err
	}
	return valuation.Aggregate(records, quotes), nil
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.portfolio(r)
	if err != nil {
		s.writeStoreError(w, err, "failed to load portfolio")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleClassification(w http.ResponseWriter, r *http.Request) {
	portfolioOnly, _ := strconv.ParseBool(r.URL.Query().Get("portfolio"))
	sector := r.URL.Query().Get("sector")

	var items []classify.Item
	if portfolioOnly {
		summary, err := s.portfolio(r)
		if err != nil {
			s.writeStoreError(w, err, "failed to load portfolio")
			return
		}
		items = classify.FromHoldings(summary.Holdings)
	} else {
		records, err := s.store.ListIpos(r.Context(), userID(r), store.IpoFilter{})
		if err != nil {
			s.writeStoreError(w, err, "failed to load ipos")
			return
		}
		quotes, err := pricing.FetchQuotes(r.Context(), s.quotes, records, s.concurrency)
		if err != nil {
			s.writeStoreError(w, err, "failed to fetch prices")
			return
		}
		items = classify.FromIpos(records, pricing.PricesByName(quotes))
	}

	if sector != "" && sector != "all" {
		items = classify.FilterSector(items, sector)
	}
	s.writeJSON(w, http.StatusOK, classify.Classify(items))
}

func (s *Server) handleResolveRule(w http.ResponseWriter, r *http.Request) {
	ref := models.CompanyRef{
		Name:     r.URL.Query().Get("company"),
		SectorID: r.URL.Query().Get("sector_id"),
	}

	ruleSet, err := s.store.ListAlertRules(r.Context(), userID(r))
	if err != nil {
		s.writeStoreError(w, err, "failed to load alert rules")
		return
	}

	idx := rules.NewIndex(ruleSet)
	resp := ResolveResponse{Thresholds: idx.Resolve(ref)}
	for _, issue := range idx.Issues() {
		resp.Integrity = append(resp.Integrity, issue.Error())
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCompany serves the merged view of one company. A failed price
// lookup still yields the view, with price_error set.
func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetIpo(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err, "failed to load company")
		return
	}

	view, err := pricing.Company(r.Context(), *rec, s.quotes)
	if err != nil {
		s.log.Warn().Err(err).Str("company", rec.CompanyName).Msg("Price lookup failed")
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLastAlerts(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		s.writeError(w, http.StatusNotFound, "alert checks are not scheduled")
		return
	}
	report := s.checker.Last()
	if report == nil {
		s.writeError(w, http.StatusNotFound, "no alert check has run yet")
		return
	}

	user := userID(r)
	mine := []alerts.Alert{}
	for _, a := range report.Alerts {
		if a.UserID == user {
			mine = append(mine, a)
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"started_at":  report.StartedAt,
		"finished_at": report.FinishedAt,
		"alerts":      mine,
	})
}

// HTTP helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := writeJSON(w, status, data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

// writeStoreError maps not-found and validation failures to client errors
// and logs anything else behind a generic message.
func (s *Server) writeStoreError(w http.ResponseWriter, err error, message string) {
	var verr *apperrors.ValidationError
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case apperrors.As(err, &verr):
		s.writeError(w, http.StatusBadRequest, verr.Error())
	default:
		s.log.Error().Err(err).Msg(message)
		s.writeError(w, http.StatusInternalServerError, message)
	}
}
