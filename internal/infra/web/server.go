package web

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"marketplace-billing/internal/usecase"
)

type Server struct {
	statsUC  usecase.StatsUseCase
	entityUC usecase.EntityUseCase
	subUC    usecase.SubscriptionUseCase
	planUC   usecase.PlanUseCase
	actionUC usecase.ActionUseCase
	permUC   usecase.PermissionUseCase
	chargeUC usecase.ChargeUseCase
	auth     *AuthManager
	apiKey   string
	log      *zerolog.Logger
}

func NewServer(
	statsUC usecase.StatsUseCase,
	entityUC usecase.EntityUseCase,
	subUC usecase.SubscriptionUseCase,
	planUC usecase.PlanUseCase,
	actionUC usecase.ActionUseCase,
	permUC usecase.PermissionUseCase,
	chargeUC usecase.ChargeUseCase,
	auth *AuthManager,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		statsUC:  statsUC,
		entityUC: entityUC,
		subUC:    subUC,
		planUC:   planUC,
		actionUC: actionUC,
		permUC:   permUC,
		chargeUC: chargeUC,
		auth:     auth,
		apiKey:   apiKey,
		log:      logger,
	}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/api/v1/login", loginHandler(s.auth, s.apiKey))

	mux.Handle("/api/v1/stats", s.authMiddleware(statsHandler(s.statsUC)))

	// A single handler for all /api/v1/entities/ routes
	entitiesRouter := s.authMiddleware(s.entitiesRouter())
	mux.Handle("/api/v1/entities", entitiesRouter)
	mux.Handle("/api/v1/entities/", entitiesRouter)

	plansRouter := s.authMiddleware(s.plansRouter())
	mux.Handle("/api/v1/plans", plansRouter)  // Handles POST and GET-all
	mux.Handle("/api/v1/plans/", plansRouter) // Handles DELETE, GET-one

	actionsRouter := s.authMiddleware(s.actionsRouter())
	mux.Handle("/api/v1/actions", actionsRouter)
	mux.Handle("/api/v1/actions/", actionsRouter)

	mux.Handle("/api/v1/permissions", s.authMiddleware(permissionsHandler(s.permUC)))
}

// authMiddleware accepts either a minted admin session (JWT) or the raw
// configured API key as a bearer token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if _, err := s.auth.ParseFromRequest(r); err == nil {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// entitiesRouter acts as a sub-router for /api/v1/entities
func (s *Server) entitiesRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/entities")
		path = strings.Trim(path, "/")

		if path == "" { // Path is /api/v1/entities
			switch r.Method {
			case http.MethodPost:
				entityCreateHandler(s.entityUC)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// Path is /api/v1/entities/{id}[/billing|/ledger|/grant|/subscriptions]
		parts := strings.SplitN(path, "/", 2)
		id := parts[0]
		sub := ""
		if len(parts) == 2 {
			sub = parts[1]
		}

		switch sub {
		case "":
			entityGetHandler(s.entityUC)(w, r, id)
		case "billing":
			entityBillingHandler(s.statsUC)(w, r, id)
		case "ledger":
			entityLedgerHandler(s.statsUC)(w, r, id)
		case "grant":
			entityGrantHandler(s.chargeUC)(w, r, id)
		case "subscriptions":
			entitySubscriptionsHandler(s.subUC)(w, r, id)
		default:
			http.NotFound(w, r)
		}
	})
}

// plansRouter acts as a sub-router for /api/v1/plans
func (s *Server) plansRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/plans")
		path = strings.Trim(path, "/")

		// Route /api/v1/plans (no ID)
		if path == "" {
			switch r.Method {
			case http.MethodGet:
				plansListHandler(s.planUC)(w, r)
			case http.MethodPost:
				plansCreateHandler(s.planUC)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// Route /api/v1/plans/{id}
		switch r.Method {
		case http.MethodGet:
			planGetHandler(s.planUC)(w, r, path)
		case http.MethodDelete:
			planDeleteHandler(s.planUC)(w, r, path)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// actionsRouter acts as a sub-router for /api/v1/actions
func (s *Server) actionsRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/actions")
		path = strings.Trim(path, "/")

		if path == "" {
			switch r.Method {
			case http.MethodGet:
				actionsListHandler(s.actionUC)(w, r)
			case http.MethodPost:
				actionDefineHandler(s.actionUC)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		switch r.Method {
		case http.MethodGet:
			actionGetHandler(s.actionUC)(w, r, path)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
