package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// AuthAttemptsTotal counts register/login/refresh outcomes.
	AuthAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Authentication attempts by operation and result.",
	}, []string{"op", "result"})
	// OrdersPlacedTotal counts successful checkouts.
	OrdersPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created from carts.",
	})
	// PaymentsTotal counts payment attempts by method and result.
	PaymentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_total",
		Help: "Payment attempts by method and result.",
	}, []string{"method", "result"})
	// CatalogCacheTotal counts catalog cache lookups by result (hit, miss, error).
	CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_total",
		Help: "Catalog cache lookups by result.",
	}, []string{"result"})
	// ImageUploadsTotal counts product image uploads by result.
	ImageUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_uploads_total",
		Help: "Product image uploads by result.",
	}, []string{"result"})
)

// MustRegisterDomainMetrics registers the store collectors on reg once per
// process. Until then they count but are not scraped.
func MustRegisterDomainMetrics(reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		AuthAttemptsTotal = register(reg, AuthAttemptsTotal)
		OrdersPlacedTotal = register(reg, OrdersPlacedTotal)
		PaymentsTotal = register(reg, PaymentsTotal)
		CatalogCacheTotal = register(reg, CatalogCacheTotal)
		ImageUploadsTotal = register(reg, ImageUploadsTotal)
	})
}
