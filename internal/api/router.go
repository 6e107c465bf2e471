package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/labels"
	"github.com/erazemk/izposoja/internal/model"
)

// NewRouter creates the API router with all endpoints registered. Reads are
// open to every role; changes need a manager; user management needs an admin.
func NewRouter(db *sql.DB, jwtSecret string, inv *inventory.Manager) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	scanHandler := &ScanHandler{Inventory: inv}
	equipmentHandler := &EquipmentHandler{Inventory: inv}
	itemsHandler := &ItemsHandler{DB: db, Inventory: inv}
	labelsHandler := &LabelsHandler{DB: db, Inventory: inv, Layout: labels.DefaultLayout}
	transactionsHandler := &TransactionsHandler{DB: db}
	productsHandler := &ProductsHandler{DB: db}
	locationsHandler := &LocationsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	manager := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Scanning station.
	mux.Handle("POST /api/scan", manager(scanHandler.Scan))

	// Equipment by UUID: read (all roles), write (manager+).
	mux.Handle("GET /api/equipment/{uuid}", authed(equipmentHandler.Get))
	mux.Handle("POST /api/equipment/{uuid}/assign", manager(equipmentHandler.Assign))
	mux.Handle("PUT /api/equipment/{uuid}/notes", manager(equipmentHandler.UpdateNotes))
	mux.Handle("PUT /api/equipment/{uuid}/condition", manager(equipmentHandler.ChangeCondition))
	mux.Handle("POST /api/equipment/{uuid}/remove", manager(equipmentHandler.Remove))
	mux.Handle("POST /api/equipment/{uuid}/reassign-uuid", manager(equipmentHandler.ReassignUUID))

	// Items: read (all roles), intake (manager+).
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", manager(itemsHandler.Create))
	mux.Handle("POST /api/items/pregenerate", manager(itemsHandler.Pregenerate))
	mux.Handle("POST /api/items/{uuid}/bind", manager(itemsHandler.Bind))

	// Label print queue.
	mux.Handle("GET /api/labels/queue", authed(labelsHandler.List))
	mux.Handle("GET /api/labels/queue/count", authed(labelsHandler.Count))
	mux.Handle("POST /api/labels/queue", manager(labelsHandler.Queue))
	mux.Handle("GET /api/labels/sheet.pdf", manager(labelsHandler.Sheet))
	mux.Handle("POST /api/labels/printed", manager(labelsHandler.MarkPrinted))

	// Ledger.
	mux.Handle("GET /api/transactions", authed(transactionsHandler.List))

	// Products: read (all roles), write (manager+).
	mux.Handle("GET /api/products", authed(productsHandler.List))
	mux.Handle("POST /api/products", manager(productsHandler.Create))
	mux.Handle("GET /api/products/{id}", authed(productsHandler.Get))
	mux.Handle("PUT /api/products/{id}", manager(productsHandler.Update))
	mux.Handle("DELETE /api/products/{id}", manager(productsHandler.Delete))
	mux.Handle("PUT /api/products/{id}/photo", manager(productsHandler.UploadPhoto))
	mux.Handle("GET /api/products/{id}/photo", authed(productsHandler.GetPhoto))

	// Locations: read (all roles), write (manager+).
	mux.Handle("GET /api/locations", authed(locationsHandler.List))
	mux.Handle("POST /api/locations", manager(locationsHandler.Create))
	mux.Handle("GET /api/locations/{id}", authed(locationsHandler.Get))
	mux.Handle("PUT /api/locations/{id}", manager(locationsHandler.Update))
	mux.Handle("DELETE /api/locations/{id}", manager(locationsHandler.Delete))

	return mux
}
