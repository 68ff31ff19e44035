package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Dan9191/bank-ledger/internal/middleware"
)

// NewRouter wires all routes. Everything except registration, login and the
// health check requires a bearer token. Request logging and security headers
// wrap the whole router so unmatched requests get them too.
func (h *Handler) NewRouter(auth middleware.Authenticator, loginRateLimit int) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	// Public routes
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.Handle("/login", middleware.RateLimitByIP(loginRateLimit, time.Minute)(http.HandlerFunc(h.Login))).
		Methods(http.MethodPost)

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(auth, h.log))

	authRouter.HandleFunc("/users/me", h.Me).Methods(http.MethodGet)
	authRouter.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	authRouter.HandleFunc("/clients", h.CreateClient).Methods(http.MethodPost)
	authRouter.HandleFunc("/clients", h.ListClients).Methods(http.MethodGet)
	authRouter.HandleFunc("/clients/{id:[0-9]+}", h.GetClient).Methods(http.MethodGet)
	authRouter.HandleFunc("/clients/{id:[0-9]+}", h.UpdateClient).Methods(http.MethodPut)
	authRouter.HandleFunc("/clients/{id:[0-9]+}", h.DeleteClient).Methods(http.MethodDelete)

	authRouter.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	authRouter.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	authRouter.HandleFunc("/accounts/{id:[0-9]+}", h.GetAccount).Methods(http.MethodGet)
	authRouter.HandleFunc("/accounts/{id:[0-9]+}", h.UpdateAccount).Methods(http.MethodPut)
	authRouter.HandleFunc("/accounts/{id:[0-9]+}", h.DeleteAccount).Methods(http.MethodDelete)
	authRouter.HandleFunc("/accounts/{id:[0-9]+}/deposit", h.Deposit).Methods(http.MethodPost)
	authRouter.HandleFunc("/accounts/{id:[0-9]+}/withdraw", h.Withdraw).Methods(http.MethodPost)
	authRouter.HandleFunc("/accounts/{id:[0-9]+}/interest", h.AccrueInterest).Methods(http.MethodPost)
	authRouter.HandleFunc("/accounts/{id:[0-9]+}/transactions", h.ListTransactions).Methods(http.MethodGet)

	// CBR key rate endpoint
	authRouter.HandleFunc("/key-rate", h.KeyRate).Methods(http.MethodGet)

	return middleware.RequestLogger(h.log)(middleware.SecureHeaders()(r))
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}
