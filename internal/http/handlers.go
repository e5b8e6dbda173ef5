package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matten-rd/finaid/internal/core"
	"github.com/matten-rd/finaid/internal/docstore"
	"github.com/matten-rd/finaid/internal/metrics"
	"github.com/matten-rd/finaid/internal/query"
)

// transactionRequest is the write DTO. Amounts are signed minor units; the
// sign encodes income vs expense. Date uses "2006-01-02".
type transactionRequest struct {
	Memo        string                `json:"memo"`
	AmountCents int64                 `json:"amountCents"`
	Category    core.CategorySnapshot `json:"category"`
	Date        string                `json:"date"`
}

func (req transactionRequest) toTransaction(id string) (core.Transaction, error) {
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return core.Transaction{}, core.ErrInvalidDate
	}
	return core.Transaction{
		ID:       id,
		Memo:     req.Memo,
		Amount:   core.Money{Cents: req.AmountCents},
		Category: req.Category,
		Date:     core.Date{Time: day},
	}, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	s.upsertTransaction(w, r, uuid.NewString(), http.StatusCreated)
}

func (s *Server) handleUpsertTransaction(w http.ResponseWriter, r *http.Request) {
	s.upsertTransaction(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (s *Server) upsertTransaction(w http.ResponseWriter, r *http.Request, id string, okStatus int) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toTransaction(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.Upsert(r.Context(), t); err != nil {
		writeLedgerError(w, err)
		return
	}
	s.invalidateSummaries()

	saved, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, okStatus, saved)
}

func (s *Server) handleTrashTransaction(w http.ResponseWriter, r *http.Request) {
	s.transitionTransaction(w, r, s.ledger.MoveToTrash)
}

func (s *Server) handleRestoreTransaction(w http.ResponseWriter, r *http.Request) {
	s.transitionTransaction(w, r, s.ledger.RestoreFromTrash)
}

func (s *Server) transitionTransaction(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")
	if err := op(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	s.invalidateSummaries()
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "ok"})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ledger.DeletePermanently(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	// No bucket was touched, so cached summaries stay valid.
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var txs []core.Transaction
	if err := s.store.List(r.Context(), docstore.CollectionTransactions, &txs); err != nil {
		writeError(w, http.StatusInternalServerError, "list transactions failed")
		return
	}

	f, scope, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filtered := query.Apply(txs, f, query.ParseSort(r.URL.Query().Get("sort")))
	groups := query.GroupByMonth(filtered)

	summary, err := s.readSummary(r, scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read summary failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"groups":  groups,
		"summary": summary,
	})
}

// filterFromQuery builds the façade filter and picks the summary scope shown
// alongside the list: the month bucket for month periods, AllTime otherwise.
func filterFromQuery(r *http.Request) (query.Filter, string, error) {
	q := r.URL.Query()

	f := query.Filter{
		Search: q.Get("q"),
		Period: query.Period{Kind: query.PeriodTotal},
	}
	if cats := strings.TrimSpace(q.Get("categories")); cats != "" {
		f.Categories = strings.Split(cats, ",")
	}

	scope := core.ScopeAllTime
	switch q.Get("period") {
	case "", "total":
	case "month":
		year, month, err := parseYearMonth(q.Get("year"), q.Get("month"))
		if err != nil {
			return query.Filter{}, "", err
		}
		f.Period = query.Period{Kind: query.PeriodMonth, Year: year, Month: month}
		scope = core.NewDate(year, int(month), 1).MonthKey()
	case "year":
		year, err := strconv.Atoi(q.Get("year"))
		if err != nil {
			return query.Filter{}, "", errors.New("invalid year")
		}
		f.Period = query.Period{Kind: query.PeriodYear, Year: year}
	default:
		return query.Filter{}, "", errors.New("invalid period: must be month, year or total")
	}
	return f, scope, nil
}

func parseYearMonth(yearStr, monthStr string) (int, time.Month, error) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, errors.New("invalid year")
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("invalid month")
	}
	return year, time.Month(month), nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = core.ScopeAllTime
	}
	if scope != core.ScopeAllTime {
		if _, err := time.Parse("2006-01", scope); err != nil {
			writeError(w, http.StatusBadRequest, "invalid scope: must be 'all' or YYYY-MM")
			return
		}
	}

	summary, err := s.readSummary(r, scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read summary failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) readSummary(r *http.Request, scope string) (core.Summary, error) {
	if cached, ok := s.summaryCache.Get(scope); ok {
		metrics.SummaryCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.SummaryCache.WithLabelValues("miss").Inc()

	summary, err := s.ledger.Summary(r.Context(), scope)
	if err != nil {
		return core.Summary{}, err
	}
	s.summaryCache.Set(scope, summary)
	return summary, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLedgerError maps domain errors onto HTTP statuses: precondition
// failures are conflicts, exhausted retries read as temporary unavailability.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrAlreadyTrashed),
		errors.Is(err, core.ErrNotTrashed),
		errors.Is(err, core.ErrTransactionTrashed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrEmptyID),
		errors.Is(err, core.ErrEmptyCategoryID),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrMemoTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
	case docstore.IsTransient(err):
		writeError(w, http.StatusServiceUnavailable, "store temporarily unavailable, retry")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
