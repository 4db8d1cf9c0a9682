// Package routes registers every controller on the terminal router with its
// authorization policy.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-electronic/internal/account"
	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/audit"
	"github.com/noah-isme/backend-electronic/internal/auth"
	"github.com/noah-isme/backend-electronic/internal/cart"
	"github.com/noah-isme/backend-electronic/internal/catalog"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/identity"
	"github.com/noah-isme/backend-electronic/internal/order"
	"github.com/noah-isme/backend-electronic/internal/payment"
	"github.com/noah-isme/backend-electronic/internal/ratelimit"
	"github.com/noah-isme/backend-electronic/internal/user"
)

// Mount implements app.MountFunc.
func Mount(r chi.Router, a *app.App) {
	d := a.Deps
	h := a.Scopes.Handle

	accounts := account.Controller{}
	catalogs := &catalog.Controller{
		Cache:     catalog.NewCache(d.Redis, d.Config.CatalogCacheTTL),
		ImagesDir: d.ImagesDir,
		Tasks:     d.Tasks,
	}
	carts := cart.Controller{}
	orders := &order.Controller{Events: d.Events}
	payments := &payment.Controller{Lock: d.Locker, Processor: payment.Simulated{}, Events: d.Events}
	users := &user.Controller{}

	idem := common.Idem{R: d.Redis}.Middleware
	login := ratelimit.Handler{
		Limiter: d.LoginLimiter,
		Key:     func(r *http.Request) string { return "login:" + common.ClientIP(r) },
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("login limiter unavailable") },
	}.Middleware
	admin := auth.RequireRole(identity.RoleAdmin)
	audited := audit.Recorder{Logger: d.Logger.With().Str("component", "audit").Logger()}.Middleware

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", h(accounts.Register))
			ar.With(login).Post("/login", h(accounts.Login))
			ar.Post("/refresh", h(accounts.Refresh))
			ar.Post("/logout", h(accounts.Logout))
			ar.Group(func(p chi.Router) {
				p.Use(auth.RequireAuth)
				p.Get("/me", h(accounts.Me))
				p.Post("/change-password", h(accounts.ChangePassword))
			})
		})

		api.Route("/categories", func(cr chi.Router) {
			cr.Get("/", h(catalogs.ListCategories))
			cr.Get("/{id}", h(catalogs.GetCategory))
			cr.Group(func(g chi.Router) {
				g.Use(admin, audited)
				g.Post("/", h(catalogs.CreateCategory))
				g.Put("/{id}", h(catalogs.UpdateCategory))
				g.Delete("/{id}", h(catalogs.DeleteCategory))
			})
		})

		api.Route("/products", func(pr chi.Router) {
			pr.Get("/", h(catalogs.ListProducts))
			pr.Get("/{id}", h(catalogs.GetProduct))
			pr.Group(func(g chi.Router) {
				g.Use(admin, audited)
				g.Post("/", h(catalogs.CreateProduct))
				g.Put("/{id}", h(catalogs.UpdateProduct))
				g.Delete("/{id}", h(catalogs.DeleteProduct))
				g.Post("/{id}/image", h(catalogs.UploadImage))
			})
		})

		api.Route("/cart", func(cr chi.Router) {
			cr.Use(auth.RequireAuth)
			cr.Get("/", h(carts.Get))
			cr.Delete("/", h(carts.Clear))
			cr.Post("/items", h(carts.AddItem))
			cr.Put("/items/{productId}", h(carts.UpdateItem))
			cr.Delete("/items/{productId}", h(carts.RemoveItem))
		})

		api.Route("/orders", func(or chi.Router) {
			or.Use(auth.RequireAuth)
			or.With(idem).Post("/", h(orders.Checkout))
			or.Get("/", h(orders.List))
			or.Get("/{id}", h(orders.Get))
			or.Get("/{id}/items", h(orders.Items))
			or.Post("/{id}/cancel", h(orders.Cancel))
			or.With(idem).Post("/{id}/payments", h(payments.Pay))
			or.Get("/{id}/payments", h(payments.ListByOrder))
		})

		api.With(auth.RequireAuth).Get("/payments/{id}", h(payments.Get))

		api.Route("/admin", func(ad chi.Router) {
			ad.Use(admin, audited)
			ad.Get("/orders", h(orders.AdminList))
			ad.Patch("/orders/{id}/status", h(orders.UpdateStatus))
		})

		api.Route("/users", func(ur chi.Router) {
			ur.With(auth.RequireAuth).Put("/me", h(users.UpdateMe))
			ur.Group(func(g chi.Router) {
				g.Use(admin, audited)
				g.Get("/", h(users.List))
				g.Get("/{id}", h(users.Get))
				g.Delete("/{id}", h(users.Delete))
				g.Post("/{id}/roles", h(users.AddRole))
				g.Delete("/{id}/roles/{role}", h(users.RemoveRole))
			})
		})
	})
}
