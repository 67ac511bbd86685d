package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/erazemk/arzenal/internal/dashboard"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/workflow"
)

// Options tunes the router. Zero values take defaults.
type Options struct {
	TokenTTL    time.Duration
	CORSOrigins []string
	Workflow    []workflow.Option
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	mux := http.NewServeMux()

	wf := workflow.NewService(db, opts.Workflow...)
	dash := dashboard.NewService(db, nil)

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, TokenTTL: opts.TokenTTL}
	usersHandler := &UsersHandler{DB: db}
	basesHandler := &BasesHandler{DB: db}
	equipmentHandler := &EquipmentHandler{DB: db}
	assetsHandler := &AssetsHandler{WF: wf}
	purchasesHandler := &PurchasesHandler{WF: wf}
	transfersHandler := &TransfersHandler{WF: wf}
	assignmentsHandler := &AssignmentsHandler{WF: wf}
	expendituresHandler := &ExpendituresHandler{WF: wf}
	dashboardHandler := &DashboardHandler{Dash: dash}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireCatalog := RequireRole(model.RoleAdmin, model.RoleLogisticsOfficer)
	requireUserAdmin := RequireRole(model.RoleAdmin, model.RoleBaseCommander)

	// authed wraps a handler in authentication only. Workflow operations
	// check role and base scope themselves.
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	// Users: admin, with base commanders listing their own base.
	mux.Handle("GET /api/users", authMW(requireUserAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Bases: read (all roles), write (admin).
	mux.Handle("GET /api/bases", authed(basesHandler.List))
	mux.Handle("GET /api/bases/{id}", authed(basesHandler.Get))
	mux.Handle("POST /api/bases", authMW(requireAdmin(http.HandlerFunc(basesHandler.Create))))
	mux.Handle("PUT /api/bases/{id}", authMW(requireAdmin(http.HandlerFunc(basesHandler.Update))))
	mux.Handle("DELETE /api/bases/{id}", authMW(requireAdmin(http.HandlerFunc(basesHandler.Delete))))

	// Equipment types: read (all roles), write (admin, logistics).
	mux.Handle("GET /api/equipment-types", authed(equipmentHandler.List))
	mux.Handle("GET /api/equipment-types/{id}", authed(equipmentHandler.Get))
	mux.Handle("GET /api/equipment-types/{id}/image", authed(equipmentHandler.GetImage))
	mux.Handle("POST /api/equipment-types", authMW(requireCatalog(http.HandlerFunc(equipmentHandler.Create))))
	mux.Handle("PUT /api/equipment-types/{id}", authMW(requireCatalog(http.HandlerFunc(equipmentHandler.Update))))
	mux.Handle("DELETE /api/equipment-types/{id}", authMW(requireCatalog(http.HandlerFunc(equipmentHandler.Delete))))
	mux.Handle("PUT /api/equipment-types/{id}/image", authMW(requireCatalog(http.HandlerFunc(equipmentHandler.UploadImage))))

	// Asset pool.
	mux.Handle("GET /api/assets", authed(assetsHandler.List))
	mux.Handle("POST /api/assets", authed(assetsHandler.Create))
	mux.Handle("GET /api/assets/{id}", authed(assetsHandler.Get))
	mux.Handle("PATCH /api/assets/{id}", authed(assetsHandler.Update))
	mux.Handle("DELETE /api/assets/{id}", authed(assetsHandler.Delete))

	// Purchases.
	mux.Handle("GET /api/purchases", authed(purchasesHandler.List))
	mux.Handle("POST /api/purchases", authed(purchasesHandler.Create))
	mux.Handle("GET /api/purchases/{id}", authed(purchasesHandler.Get))
	mux.Handle("PATCH /api/purchases/{id}", authed(purchasesHandler.Update))
	mux.Handle("DELETE /api/purchases/{id}", authed(purchasesHandler.Delete))
	mux.Handle("POST /api/purchases/{id}/deliver", authed(purchasesHandler.Deliver))
	mux.Handle("POST /api/purchases/{id}/cancel", authed(purchasesHandler.Cancel))

	// Transfers.
	mux.Handle("GET /api/transfers", authed(transfersHandler.List))
	mux.Handle("POST /api/transfers", authed(transfersHandler.Create))
	mux.Handle("GET /api/transfers/{id}", authed(transfersHandler.Get))
	mux.Handle("PATCH /api/transfers/{id}", authed(transfersHandler.Update))
	mux.Handle("DELETE /api/transfers/{id}", authed(transfersHandler.Delete))
	mux.Handle("POST /api/transfers/{id}/approve", authed(transfersHandler.Approve))
	mux.Handle("POST /api/transfers/{id}/complete", authed(transfersHandler.Complete))
	mux.Handle("POST /api/transfers/{id}/cancel", authed(transfersHandler.Cancel))

	// Assignments.
	mux.Handle("GET /api/assignments", authed(assignmentsHandler.List))
	mux.Handle("POST /api/assignments", authed(assignmentsHandler.Create))
	mux.Handle("GET /api/assignments/{id}", authed(assignmentsHandler.Get))
	mux.Handle("PATCH /api/assignments/{id}", authed(assignmentsHandler.Update))
	mux.Handle("DELETE /api/assignments/{id}", authed(assignmentsHandler.Delete))
	mux.Handle("POST /api/assignments/{id}/return", authed(assignmentsHandler.Return))
	mux.Handle("POST /api/assignments/{id}/mark", authed(assignmentsHandler.Mark))

	// Expenditures.
	mux.Handle("GET /api/expenditures", authed(expendituresHandler.List))
	mux.Handle("POST /api/expenditures", authed(expendituresHandler.Create))
	mux.Handle("GET /api/expenditures/{id}", authed(expendituresHandler.Get))
	mux.Handle("PATCH /api/expenditures/{id}", authed(expendituresHandler.Update))
	mux.Handle("DELETE /api/expenditures/{id}", authed(expendituresHandler.Delete))
	mux.Handle("POST /api/expenditures/{id}/approve", authed(expendituresHandler.Approve))
	mux.Handle("POST /api/expenditures/{id}/complete", authed(expendituresHandler.Complete))
	mux.Handle("POST /api/expenditures/{id}/cancel", authed(expendituresHandler.Cancel))

	// Dashboard.
	mux.Handle("GET /api/dashboard/metrics", authed(dashboardHandler.Metrics))
	mux.Handle("GET /api/dashboard/net-movement", authed(dashboardHandler.NetMovement))
	mux.Handle("GET /api/dashboard/purchases-detail", authed(dashboardHandler.PurchasesDetail))
	mux.Handle("GET /api/dashboard/transfers-in-detail", authed(dashboardHandler.TransfersInDetail))
	mux.Handle("GET /api/dashboard/transfers-out-detail", authed(dashboardHandler.TransfersOutDetail))

	var h http.Handler = handlers.CompressHandler(mux)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.Default()),
		handlers.PrintRecoveryStack(true),
	)(h)
	if len(opts.CORSOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(opts.CORSOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
			handlers.ExposedHeaders([]string{"X-Request-ID"}),
		)(h)
	}
	return logger.Middleware(LoggingMiddleware(h))
}
