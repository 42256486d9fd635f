package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ReceiptsGeneratedTotal counts assembled receipts by template and output format.
	ReceiptsGeneratedTotal *prometheus.CounterVec
	// BasketLines records how many lines each synthesized basket holds.
	BasketLines prometheus.Histogram
	// CorrectiveLinesTotal counts baskets that needed a corrective line.
	CorrectiveLinesTotal prometheus.Counter
	// PlacesLookupTotal counts merchant lookups by outcome.
	PlacesLookupTotal *prometheus.CounterVec
	// AuthLoginTotal counts password gate attempts by outcome.
	AuthLoginTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ReceiptsGeneratedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_generated_total",
			Help:      "Count of generated receipts by template and format.",
		}, []string{"template", "format"}))
		BasketLines = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "basket_lines",
			Help:      "Number of line items per synthesized basket.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 15},
		}))
		CorrectiveLinesTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "basket_corrective_lines_total",
			Help:      "Number of baskets closed with a corrective line.",
		}))
		PlacesLookupTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "places_lookup_total",
			Help:      "Count of merchant lookups by result.",
		}, []string{"result"}))
		AuthLoginTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_login_total",
			Help:      "Count of password gate login attempts by result.",
		}, []string{"result"}))
	})
}
