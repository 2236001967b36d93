package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/avigne/subtrack/internal/integrations/rates"
	"github.com/avigne/subtrack/internal/models"
	"github.com/avigne/subtrack/internal/service"
)

type Handler struct {
	svc   *service.Service
	rates *rates.Client
}

func NewHandler(svc *service.Service, rates *rates.Client) *Handler {
	return &Handler{svc: svc, rates: rates}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.svc.Register(req.Username, req.Email, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Me returns the authenticated user's account
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// SetBudget stores the caller's monthly spending limit
func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MonthlyBudget float64 `json:"monthly_budget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.SetMonthlyBudget(r.Context(), req.MonthlyBudget); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"monthly_budget": req.MonthlyBudget})
}

// CreateSubscription handles subscription creation
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var sub models.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.svc.CreateSubscription(r.Context(), &sub)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListSubscriptions returns the caller's portfolio
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.ListSubscriptions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// SearchSubscriptions filters the caller's portfolio by category, free
// text and price range. All criteria are optional and combine with AND.
func (h *Handler) SearchSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.SearchFilter{
		Category: q.Get("category"),
		Text:     q.Get("q"),
	}
	if v := q.Get("min_price"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "invalid min_price parameter", http.StatusBadRequest)
			return
		}
		filter.MinPrice = &parsed
	}
	if v := q.Get("max_price"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "invalid max_price parameter", http.StatusBadRequest)
			return
		}
		filter.MaxPrice = &parsed
	}

	subs, err := h.svc.SearchSubscriptions(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetSubscription returns a single subscription
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.GetSubscription(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// UpdateSubscription handles subscription updates
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var sub models.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sub.ID = mux.Vars(r)["id"]

	updated, err := h.svc.UpdateSubscription(r.Context(), &sub)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteSubscription removes a subscription
func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSubscription(r.Context(), mux.Vars(r)["id"]); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkUsed records a usage observation for a subscription
func (h *Handler) MarkUsed(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.MarkSubscriptionUsed(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ImportCSV bulk loads subscriptions from an uploaded portfolio file
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.ImportCSV(r.Context(), r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"imported": count})
}

// ExportCSV streams the caller's portfolio as a CSV download
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="subscriptions.csv"`)
	if err := h.svc.ExportCSV(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Report returns the full portfolio report
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Report(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Scores returns the per subscription score sets
func (h *Handler) Scores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.svc.Scores(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// Duplicates returns the fuzzy duplicate groups
func (h *Handler) Duplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Duplicates(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// Segments returns the portfolio spending clusters
func (h *Handler) Segments(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.svc.Segments(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, clusters)
}

// Forecast projects spending over the requested horizon
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	months := 6
	if v := r.URL.Query().Get("months"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid months parameter", http.StatusBadRequest)
			return
		}
		months = parsed
	}

	result, err := h.svc.Forecast(r.Context(), months)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BudgetPlan computes the cancellations needed to meet a budget
func (h *Handler) BudgetPlan(w http.ResponseWriter, r *http.Request) {
	target, err := strconv.ParseFloat(r.URL.Query().Get("target"), 64)
	if err != nil {
		http.Error(w, "invalid target parameter", http.StatusBadRequest)
		return
	}

	plan, err := h.svc.BudgetPlan(r.Context(), target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// Health returns the portfolio health score
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	score, err := h.svc.Health(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"health_score": score})
}

// Metrics returns the aggregate value indicators
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.svc.Metrics(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// Anomalies returns the portfolio anomaly report
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Anomalies(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ConvertCurrency converts an amount between currencies using the
// daily reference rates.
func (h *Handler) ConvertCurrency(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		http.Error(w, "invalid amount parameter", http.StatusBadRequest)
		return
	}
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		http.Error(w, "from and to parameters are required", http.StatusBadRequest)
		return
	}

	converted, err := h.rates.Convert(amount, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"amount":    amount.String(),
		"from":      from,
		"to":        to,
		"converted": converted.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
