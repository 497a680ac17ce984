// Package committer collects Spanner mutations into a plan and applies them
// atomically.
//
// Ledger writes follow one pattern:
//
//	commitTs, err := c.ReadWrite(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction, plan *committer.CommitPlan) error {
//	    // 1. Read current rows through txn and enforce store-side rules
//	    // 2. Repositories return mutations (they never apply them)
//	    plan.Add(unitModel.UpdateStatusMut(...))
//	    // 3. Outbox events join the same plan
//	    plan.Add(outboxRepo.InsertMut(event))
//	    return plan.CheckBudget(budget, contracts.MutationCost)
//	})
//
// The commit timestamp returned by ReadWrite is the store-assigned time of
// every row written with spanner.CommitTimestamp.
package committer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
)

// ErrBudgetExceeded is returned by CheckBudget when a plan costs more than allowed.
var ErrBudgetExceeded = errors.New("resource budget exceeded")

// CommitPlan is a typed wrapper around Spanner mutations.
type CommitPlan struct {
	mutations []*spanner.Mutation
}

// NewPlan creates a new empty CommitPlan.
func NewPlan() *CommitPlan {
	return &CommitPlan{
		mutations: make([]*spanner.Mutation, 0),
	}
}

// Add adds a mutation to the plan.
// Nil mutations are silently ignored for convenience.
func (cp *CommitPlan) Add(mut *spanner.Mutation) {
	if mut != nil {
		cp.mutations = append(cp.mutations, mut)
	}
}

// AddMultiple adds multiple mutations to the plan.
func (cp *CommitPlan) AddMultiple(muts []*spanner.Mutation) {
	for _, mut := range muts {
		cp.Add(mut)
	}
}

// Mutations returns all collected mutations.
func (cp *CommitPlan) Mutations() []*spanner.Mutation {
	return cp.mutations
}

// IsEmpty returns true if the plan has no mutations.
func (cp *CommitPlan) IsEmpty() bool {
	return len(cp.mutations) == 0
}

// Count returns the number of mutations in the plan.
func (cp *CommitPlan) Count() int {
	return len(cp.mutations)
}

// Cost returns the plan's cost at perMutation units per mutation.
func (cp *CommitPlan) Cost(perMutation int) int {
	return cp.Count() * perMutation
}

// CheckBudget fails with ErrBudgetExceeded when the plan costs more than budget.
func (cp *CommitPlan) CheckBudget(budget, perMutation int) error {
	if cost := cp.Cost(perMutation); cost > budget {
		return fmt.Errorf("%w: %d mutations cost %d, budget %d", ErrBudgetExceeded, cp.Count(), cost, budget)
	}
	return nil
}

// Committer provides transaction execution for CommitPlans.
type Committer struct {
	client *spanner.Client
}

// NewCommitter creates a new Committer.
func NewCommitter(client *spanner.Client) *Committer {
	return &Committer{client: client}
}

// Apply executes the CommitPlan atomically.
func (c *Committer) Apply(ctx context.Context, plan *CommitPlan) (time.Time, error) {
	if plan.IsEmpty() {
		return time.Time{}, nil
	}

	commitTs, err := c.client.Apply(ctx, plan.Mutations())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to apply commit plan: %w", err)
	}

	return commitTs, nil
}

// ReadWrite runs fn inside a read-write transaction with a fresh plan per
// attempt, then buffers the plan. Errors returned by fn abort the transaction
// and are returned unwrapped.
func (c *Committer) ReadWrite(ctx context.Context, fn func(context.Context, *spanner.ReadWriteTransaction, *CommitPlan) error) (time.Time, error) {
	return c.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		plan := NewPlan()
		if err := fn(ctx, txn, plan); err != nil {
			return err
		}
		if plan.IsEmpty() {
			return nil
		}
		return txn.BufferWrite(plan.Mutations())
	})
}
