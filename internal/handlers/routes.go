package handlers

import "net/http"

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	Parent       *ParentHandler
	Transactions *TransactionHandler
	Invitations  *InvitationHandler
}

// NewRouter registers every API route and wraps the mux with request
// logging and panic recovery.
func NewRouter(m *Middleware, h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)

	mux.HandleFunc("POST /auth/register", m.RateLimit(h.Auth.Register))
	mux.HandleFunc("POST /auth/login/parent", m.RateLimit(h.Auth.LoginParent))
	mux.HandleFunc("POST /auth/login/child", m.RateLimit(h.Auth.LoginChild))
	mux.HandleFunc("POST /auth/join", m.RateLimit(h.Auth.Join))
	mux.HandleFunc("POST /auth/logout", m.RequireAuth(h.Auth.Logout))
	mux.HandleFunc("GET /auth/me", m.RequireAuth(h.Auth.Me))

	mux.HandleFunc("GET /family", m.RequireAuth(h.Parent.ShowFamily))
	mux.HandleFunc("GET /children", m.RequireAuth(h.Parent.ListChildren))
	mux.HandleFunc("POST /children", m.RequireAuth(h.Parent.CreateChild))
	mux.HandleFunc("GET /children/{id}", m.RequireAuth(h.Parent.GetChild))
	mux.HandleFunc("PATCH /children/{id}", m.RequireAuth(h.Parent.UpdateChild))

	mux.HandleFunc("POST /transactions", m.RequireAuth(h.Transactions.Create))
	mux.HandleFunc("GET /transactions/family", m.RequireAuth(h.Transactions.ListFamily))
	mux.HandleFunc("GET /transactions/child/{id}", m.RequireAuth(h.Transactions.ListChild))
	mux.HandleFunc("GET /transactions/my-transactions", m.RequireAuth(h.Transactions.ListMine))
	mux.HandleFunc("GET /transactions/{id}", m.RequireAuth(h.Transactions.Get))

	mux.HandleFunc("GET /invitations", m.RequireAuth(h.Invitations.List))
	mux.HandleFunc("POST /invitations", m.RequireAuth(h.Invitations.Create))
	mux.HandleFunc("DELETE /invitations/{id}", m.RequireAuth(h.Invitations.Revoke))

	return m.RequestLogging(m.Recoverer(mux))
}
