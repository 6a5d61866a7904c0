package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	authzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tenancy", Subsystem: "authz", Name: "decisions_total", Help: "Authorization decisions by outcome"},
		[]string{"entity", "decision"},
	)
	scopeViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tenancy", Subsystem: "repository", Name: "scope_violations_total", Help: "Tenant-scoped repository calls rejected for breaking their scope"},
		[]string{"op"},
	)
	roleLookups = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "tenancy", Subsystem: "roles", Name: "store_lookups_total", Help: "Role store reads performed by authorization episodes"},
	)
	backendLinksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "tenancy", Subsystem: "backends", Name: "links_created_total", Help: "Backend links created by the sync command"},
	)
)

func init() {
	prometheus.MustRegister(authzDecisions, scopeViolations, roleLookups, backendLinksCreated)
}

func IncDecision(entity, decision string) { authzDecisions.WithLabelValues(entity, decision).Inc() }
func IncScopeViolation(op string)         { scopeViolations.WithLabelValues(op).Inc() }
func IncRoleLookup()                      { roleLookups.Inc() }
func IncBackendLinkCreated()              { backendLinksCreated.Inc() }
