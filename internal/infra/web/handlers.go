package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/usecase"
)

type loginRequest struct {
	APIKey string `json:"api_key"`
}

// loginHandler exchanges the configured API key for a short-lived admin
// session cookie.
func loginHandler(auth *AuthManager, apiKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if apiKey == "" || req.APIKey != apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		token, err := auth.Mint(w)
		if err != nil {
			http.Error(w, "Failed to mint session", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	}
}

// statsHandler serves the service-wide overview.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overview, err := statsUC.Overview(r.Context())
		if err != nil {
			http.Error(w, "Failed to get overview", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(overview)
	}
}

type entityCreateRequest struct {
	Name          string `json:"name"`
	CreatorUserID string `json:"creator_user_id"`
}

func entityCreateHandler(entityUC usecase.EntityUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entityCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		e, err := entityUC.Create(r.Context(), req.Name, req.CreatorUserID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to create entity", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(e)
	}
}

func entityGetHandler(entityUC usecase.EntityUseCase) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, id string) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		e, err := entityUC.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get entity", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(e)
	}
}

func entityBillingHandler(statsUC usecase.StatsUseCase) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, id string) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		billing, err := statsUC.EntityBilling(r.Context(), id)
		if err != nil {
			http.Error(w, "Failed to get billing summary", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(billing)
	}
}

// entityLedgerHandler lists recent ledger entries. Accepts a 'limit' query
// parameter.
func entityLedgerHandler(statsUC usecase.StatsUseCase) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, id string) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := statsUC.Ledger(r.Context(), id, limit)
		if err != nil {
			http.Error(w, "Failed to list ledger", http.StatusInternalServerError)
			return
		}
		response := struct {
			Data []*model.CreditHistory `json:"data"`
		}{Data: entries}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

type grantRequest struct {
	UserID  string `json:"user_id"`
	Credits int64  `json:"credits"`
}

// entityGrantHandler credits an entity balance directly, for support and
// promo grants that bypass the payment gateway.
func entityGrantHandler(chargeUC usecase.ChargeUseCase) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, id string) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req grantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		entry, err := chargeUC.TopUp(r.Context(), req.UserID, id, req.Credits)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to grant credits", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(entry)
	}
}

type subscriptionAssignRequest struct {
	UserID     string         `json:"user_id"`
	PlanID     string         `json:"plan_id"`
	Start      string         `json:"start"` // YYYY-MM-DD, empty means today
	ActionCaps map[string]int `json:"action_caps"`
}

// entitySubscriptionsHandler lists an entity's subscriptions on GET and
// assigns a new one on POST.
func entitySubscriptionsHandler(subUC usecase.SubscriptionUseCase) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, id string) {
		ctx := r.Context()
		switch r.Method {
		case http.MethodGet:
			subs, err := subUC.ListByEntity(ctx, id)
			if err != nil {
				http.Error(w, "Failed to list subscriptions", http.StatusInternalServerError)
				return
			}
			response := struct {
				Data []*model.EntitySubscription `json:"data"`
			}{Data: subs}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(response)
		case http.MethodPost:
			var req subscriptionAssignRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			start := time.Now()
			if req.Start != "" {
				parsed, err := time.Parse("2006-01-02", req.Start)
				if err != nil {
					http.Error(w, "Invalid start date", http.StatusBadRequest)
					return
				}
				start = parsed
			}
			sub, err := subUC.Assign(ctx, id, req.UserID, req.PlanID, start, req.ActionCaps)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrSubscriptionExists):
					http.Error(w, err.Error(), http.StatusConflict)
				case errors.Is(err, domain.ErrNotFound):
					http.Error(w, "Plan not found", http.StatusNotFound)
				case errors.Is(err, domain.ErrInvalidArgument):
					http.Error(w, err.Error(), http.StatusBadRequest)
				default:
					http.Error(w, "Failed to assign subscription", http.StatusInternalServerError)
				}
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(sub)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

type planCreateRequest struct {
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	PriceCents   int64  `json:"price_cents"`
	Currency     string `json:"currency"`
}

func plansCreateHandler(planUC usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		plan, err := planUC.Create(r.Context(), req.Name, req.DurationDays, req.PriceCents, req.Currency)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to create plan", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(plan)
	}
}

func plansListHandler(planUC usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := planUC.List(r.Context())
		if err != nil {
			http.Error(w, "Failed to list plans", http.StatusInternalServerError)
			return
		}
		response := struct {
			Data []*model.SubscriptionPlan `json:"data"`
		}{Data: plans}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

func planGetHandler(planUC usecase.PlanUseCase) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, id string) {
		plan, err := planUC.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get plan", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(plan)
	}
}

func planDeleteHandler(planUC usecase.PlanUseCase) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, id string) {
		if err := planUC.Delete(r.Context(), id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to delete plan", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type actionDefineRequest struct {
	Name           string `json:"name"`
	AppArea        string `json:"app_area"`
	CreditRequired int64  `json:"credit_required"`
	IntervalDays   int    `json:"interval_days"`
}

func actionDefineHandler(actionUC usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req actionDefineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		a, err := actionUC.Define(r.Context(), req.Name, model.AppArea(req.AppArea), req.CreditRequired, req.IntervalDays)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to define action", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(a)
	}
}

func actionsListHandler(actionUC usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actions, err := actionUC.List(r.Context())
		if err != nil {
			http.Error(w, "Failed to list actions", http.StatusInternalServerError)
			return
		}
		response := struct {
			Data []*model.CreditAction `json:"data"`
		}{Data: actions}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

func actionGetHandler(actionUC usecase.ActionUseCase) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, name string) {
		a, err := actionUC.Get(r.Context(), name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get action", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(a)
	}
}

type permissionRequest struct {
	EntityID   string `json:"entity_id"`
	UserID     string `json:"user_id"`
	Capability string `json:"capability"`
}

// permissionsHandler grants on POST, revokes on DELETE, and lists a user's
// capabilities on GET (entity_id and user_id query parameters).
func permissionsHandler(permUC usecase.PermissionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		switch r.Method {
		case http.MethodGet:
			entityID := r.URL.Query().Get("entity_id")
			userID := r.URL.Query().Get("user_id")
			if entityID == "" || userID == "" {
				http.Error(w, "entity_id and user_id are required", http.StatusBadRequest)
				return
			}
			caps, err := permUC.List(ctx, userID, entityID)
			if err != nil {
				http.Error(w, "Failed to list permissions", http.StatusInternalServerError)
				return
			}
			response := struct {
				Data []model.Capability `json:"data"`
			}{Data: caps}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(response)
		case http.MethodPost, http.MethodDelete:
			var req permissionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			var err error
			if r.Method == http.MethodPost {
				err = permUC.Grant(ctx, req.UserID, req.EntityID, model.Capability(req.Capability))
			} else {
				err = permUC.Revoke(ctx, req.UserID, req.EntityID, model.Capability(req.Capability))
			}
			if err != nil {
				http.Error(w, "Failed to update permissions", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
