/*
goals.go - Savings goals and contributions

PURPOSE:
  Goals carry a denormalized running total of contributions. Creating a
  contribution and incrementing the goal's CurrentAmount happen in one
  store transaction, so a contribution can never exist without its effect
  on the total, or vice versa. Reaching the target flips an active goal to
  completed in the same unit.
*/
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerkit/finance-engine/calendar"
)

// =============================================================================
// GOAL SERVICE
// =============================================================================

type GoalService struct {
	store TxStore
	clock Clock
}

func NewGoalService(store TxStore, clock Clock) *GoalService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &GoalService{store: store, clock: clock}
}

type CreateGoalInput struct {
	Name         string
	TargetAmount decimal.Decimal
	Deadline     *calendar.Date
}

func (s *GoalService) Create(ctx context.Context, owner UserID, in CreateGoalInput) (*Goal, error) {
	if in.Name == "" {
		return nil, invalid("name", "is required")
	}
	if !in.TargetAmount.IsPositive() {
		return nil, invalid("targetAmount", "must be positive")
	}

	g := Goal{
		ID:            GoalID(uuid.NewString()),
		OwnerID:       owner,
		Name:          in.Name,
		TargetAmount:  in.TargetAmount.Round(2),
		CurrentAmount: decimal.Zero,
		Deadline:      in.Deadline,
		Status:        GoalActive,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GoalService) Get(ctx context.Context, owner UserID, id GoalID) (*Goal, error) {
	g, err := s.store.GetGoal(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, notFound("goal", string(id))
	}
	return g, nil
}

func (s *GoalService) List(ctx context.Context, owner UserID) ([]Goal, error) {
	return s.store.ListGoals(ctx, owner)
}

// Cancel marks a goal cancelled. Contributions stay.
func (s *GoalService) Cancel(ctx context.Context, owner UserID, id GoalID) (*Goal, error) {
	g, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	g.Status = GoalCancelled
	if err := s.store.UpdateGoal(ctx, *g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, owner UserID, id GoalID) error {
	deleted, err := s.store.DeleteGoal(ctx, owner, id)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("goal", string(id))
	}
	return nil
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

// Contribute appends a contribution and increments the goal's running
// total atomically. An active goal whose total reaches the target flips
// to completed in the same transaction.
func (s *GoalService) Contribute(ctx context.Context, owner UserID, id GoalID, amount decimal.Decimal, date calendar.Date) (*Goal, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount", "must be positive")
	}
	if date.IsZero() {
		date = s.clock.Today()
	}

	var updated Goal
	err := s.store.WithTx(ctx, func(st Store) error {
		g, err := st.GetGoal(ctx, owner, id)
		if err != nil {
			return err
		}
		if g == nil {
			return notFound("goal", string(id))
		}

		contribution := GoalContribution{
			ID:        uuid.NewString(),
			GoalID:    g.ID,
			Amount:    amount.Round(2),
			Date:      date,
			CreatedAt: s.clock.Now(),
		}
		if err := st.CreateGoalContribution(ctx, contribution); err != nil {
			return err
		}

		g.CurrentAmount = g.CurrentAmount.Add(contribution.Amount)
		if g.Status == GoalActive && g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
			g.Status = GoalCompleted
		}
		if err := st.UpdateGoal(ctx, *g); err != nil {
			return err
		}
		updated = *g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *GoalService) Contributions(ctx context.Context, owner UserID, id GoalID) ([]GoalContribution, error) {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return nil, err
	}
	return s.store.ListGoalContributions(ctx, id)
}
