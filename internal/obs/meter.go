package obs

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// storeInstruments mirror the Prometheus domain counters as OpenTelemetry
// instruments so the same events reach an OTLP collector.
type storeInstruments struct {
	auth     metric.Int64Counter
	orders   metric.Int64Counter
	payments metric.Int64Counter
	cache    metric.Int64Counter
	uploads  metric.Int64Counter
}

var (
	meterMu sync.RWMutex
	meters  = mustInstruments(otel.GetMeterProvider())
)

func newInstruments(mp metric.MeterProvider) (storeInstruments, error) {
	m := mp.Meter(ServiceName)
	var (
		in  storeInstruments
		err error
	)
	if in.auth, err = m.Int64Counter("store.auth.attempts", metric.WithDescription("Authentication attempts by operation and result.")); err != nil {
		return in, err
	}
	if in.orders, err = m.Int64Counter("store.orders.placed", metric.WithDescription("Orders created from carts.")); err != nil {
		return in, err
	}
	if in.payments, err = m.Int64Counter("store.payments", metric.WithDescription("Payment attempts by method and result.")); err != nil {
		return in, err
	}
	if in.cache, err = m.Int64Counter("store.catalog.cache", metric.WithDescription("Catalog cache lookups by result.")); err != nil {
		return in, err
	}
	if in.uploads, err = m.Int64Counter("store.image.uploads", metric.WithDescription("Product image uploads by result.")); err != nil {
		return in, err
	}
	return in, nil
}

func mustInstruments(mp metric.MeterProvider) storeInstruments {
	in, err := newInstruments(mp)
	if err != nil {
		panic(err)
	}
	return in
}

// UseMeterProvider rebinds the domain instruments to mp.
func UseMeterProvider(mp metric.MeterProvider) error {
	in, err := newInstruments(mp)
	if err != nil {
		return err
	}
	meterMu.Lock()
	meters = in
	meterMu.Unlock()
	return nil
}

func instruments() storeInstruments {
	meterMu.RLock()
	defer meterMu.RUnlock()
	return meters
}

// InitMeter installs a global OTLP/HTTP meter provider, binds the domain
// instruments to it and returns its shutdown function.
func InitMeter(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	var opts []otlpmetrichttp.Option
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, otlpmetrichttp.WithEndpointURL(endpoint))
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg.Environment)
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	if err := UseMeterProvider(mp); err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	return mp.Shutdown, nil
}

// RecordAuthAttempt counts a register, login or refresh outcome.
func RecordAuthAttempt(ctx context.Context, op, result string) {
	AuthAttemptsTotal.WithLabelValues(op, result).Inc()
	instruments().auth.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("result", result)))
}

// RecordOrderPlaced counts a successful checkout.
func RecordOrderPlaced(ctx context.Context) {
	OrdersPlacedTotal.Inc()
	instruments().orders.Add(ctx, 1)
}

// RecordPayment counts a payment attempt.
func RecordPayment(ctx context.Context, method, result string) {
	PaymentsTotal.WithLabelValues(method, result).Inc()
	instruments().payments.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method), attribute.String("result", result)))
}

// RecordCatalogCache counts a catalog cache lookup (hit, miss or error).
func RecordCatalogCache(ctx context.Context, result string) {
	CatalogCacheTotal.WithLabelValues(result).Inc()
	instruments().cache.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordImageUpload counts a product image upload (ok, rejected or error).
func RecordImageUpload(ctx context.Context, result string) {
	ImageUploadsTotal.WithLabelValues(result).Inc()
	instruments().uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
