package handlers

import (
	"io/fs"
	"net/http"
)

// Router wires the handlers into one http.Handler.
type Router struct {
	Home    *HomeHandler
	Orders  *OrderHandler
	Account *AccountHandler
	Admin   *AdminHandler
	API     *APIHandler
	Auth    *Authenticator

	// OrderLimiter throttles order submissions. Nil disables it.
	OrderLimiter *RateLimiter
	// Static holds the stylesheet and placeholder assets.
	Static fs.FS
	// UploadDir is where product images are written.
	UploadDir string
	// CSRF protects the HTML routes. Nil leaves them unprotected.
	CSRF func(http.Handler) http.Handler
}

// Handler returns the full middleware chain:
// Logger -> Security Headers -> (CSRF -> LoadUser -> pages | LoadUser -> API).
func (rt *Router) Handler() http.Handler {
	csrfProtect := rt.CSRF
	if csrfProtect == nil {
		csrfProtect = func(h http.Handler) http.Handler { return h }
	}

	mux := http.NewServeMux()

	// Static Files
	if rt.Static != nil {
		mux.Handle("GET /static/", http.StripPrefix("/static", http.FileServerFS(rt.Static)))
	}
	if rt.UploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads", http.FileServer(http.Dir(rt.UploadDir))))
	}

	mux.Handle("/api/", rt.Auth.LoadUser(rt.apiRoutes()))
	mux.Handle("/", csrfProtect(rt.Auth.LoadUser(rt.pageRoutes())))

	return LoggingMiddleware(SecurityHeadersMiddleware(mux))
}

func (rt *Router) pageRoutes() http.Handler {
	mux := http.NewServeMux()

	submitOrder := rt.Orders.SubmitOrder
	if rt.OrderLimiter != nil {
		submitOrder = rt.OrderLimiter.Middleware(submitOrder)
	}

	// Public Routes
	mux.HandleFunc("GET /{$}", rt.Home.Index)
	mux.HandleFunc("GET /product/{id}", rt.Home.Product)
	mux.HandleFunc("GET /order/{id}", rt.Orders.OrderForm)
	mux.HandleFunc("POST /order/{id}", submitOrder)
	mux.HandleFunc("GET /order/confirmation/{id}", rt.Orders.Confirmation)

	mux.HandleFunc("GET /login", rt.Account.LoginGet)
	mux.HandleFunc("POST /login", rt.Account.LoginPost)
	mux.HandleFunc("POST /logout", rt.Account.Logout)
	mux.HandleFunc("GET /register", rt.Account.RegisterGet)
	mux.HandleFunc("POST /register", rt.Account.RegisterPost)

	// Account Routes
	mux.Handle("GET /profile", rt.Auth.RequireUser(http.HandlerFunc(rt.Account.Profile)))
	mux.Handle("GET /profile/edit", rt.Auth.RequireUser(http.HandlerFunc(rt.Account.EditProfileGet)))
	mux.Handle("POST /profile/edit", rt.Auth.RequireUser(http.HandlerFunc(rt.Account.EditProfilePost)))

	// Protected Routes
	admin := rt.Auth.RequireAdmin(rt.adminRoutes())
	mux.Handle("/admin", admin)
	mux.Handle("/admin/", admin)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		rt.Home.notFound(w, r, "Page")
	})
	return mux
}

func (rt *Router) adminRoutes() http.Handler {
	h := rt.Admin
	mux := http.NewServeMux()

	mux.HandleFunc("GET /admin", h.Dashboard)
	mux.HandleFunc("GET /admin/{$}", h.Dashboard)
	mux.HandleFunc("POST /admin/products", h.CreateProducts)
	mux.HandleFunc("GET /admin/products/{id}/edit", h.EditProductForm)
	mux.HandleFunc("POST /admin/products/{id}", h.UpdateProduct)
	mux.HandleFunc("POST /admin/products/{id}/delete", h.DeleteProduct)
	mux.HandleFunc("POST /admin/categories", h.CreateCategory)
	mux.HandleFunc("POST /admin/categories/{id}/delete", h.DeleteCategory)

	mux.HandleFunc("GET /admin/orders", h.ListOrders)
	mux.HandleFunc("POST /admin/orders/{id}/status", h.UpdateOrderStatus)
	mux.HandleFunc("GET /admin/requests", h.ListRequests)
	mux.HandleFunc("POST /admin/requests/{id}/status", h.UpdateRequestStatus)

	mux.HandleFunc("GET /admin/export/products", h.ExportProducts)
	mux.HandleFunc("GET /admin/export/orders", h.ExportOrders)
	return mux
}

func (rt *Router) apiRoutes() http.Handler {
	h := rt.API
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/product-requests", h.CreateRequest)
	mux.HandleFunc("POST /api/tokens", h.IssueToken)
	mux.Handle("GET /api/product-requests", rt.Auth.RequireAdminAPI(http.HandlerFunc(h.ListRequests)))
	mux.Handle("PUT /api/product-requests/{id}", rt.Auth.RequireAdminAPI(http.HandlerFunc(h.UpdateRequest)))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})
	return mux
}
