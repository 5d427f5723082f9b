package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sanctionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_sanctions_applied",
	Help: "Number of sanctions enforced on the platform",
}, []string{"action"})

var authorizationDenials = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_authorization_denials",
	Help: "Number of sanction requests refused by the hierarchy check",
}, []string{"reason"})

var enforcementFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_enforcement_failures",
	Help: "Number of remote enforcement calls that failed",
}, []string{"action", "kind"})

var notificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_notifications",
	Help: "Direct message outcomes for sanctioned users",
}, []string{"outcome"})

var storeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_store_failures",
	Help: "Number of failed sanction store operations",
}, []string{"op"})

var reconcilerDrains = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_reconciler_drains",
	Help: "Number of completed expiry drains",
})

var reconcilerReversals = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_reconciler_reversals",
	Help: "Number of expired bans lifted by the reconciler",
})

var reconcilerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_reconciler_failures",
	Help: "Number of expired bans left for the next cycle",
}, []string{"stage"})
