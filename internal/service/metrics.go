package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain metrics, auto-registered in the default Prometheus registry.
var (
	groupsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spliteasy_groups_created_total",
			Help: "Total number of groups created",
		},
	)

	membersAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spliteasy_members_added_total",
			Help: "Total number of members added to groups",
		},
	)

	expensesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spliteasy_expenses_created_total",
			Help: "Total number of expenses created",
		},
	)

	expenseValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spliteasy_expense_validation_failures_total",
			Help: "Total number of rejected expense submissions by reason",
		},
		[]string{"reason"}, // amount, description, shares
	)

	expenseCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spliteasy_expense_compensations_total",
			Help: "Total number of compensating expense deletes by outcome",
		},
		[]string{"outcome"}, // deleted, orphaned
	)

	balanceComputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spliteasy_balance_computations_total",
			Help: "Total number of group balance computations",
		},
	)
)
