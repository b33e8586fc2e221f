package services

import (
	"context"
	"errors"

	"github.com/davidesra/fittrack/internal/models"
	"github.com/davidesra/fittrack/internal/store"
)

var ErrInvalidGoal = errors.New("invalid goal")

type GoalService struct {
	store *store.Store
}

func NewGoalService(s *store.Store) *GoalService {
	return &GoalService{store: s}
}

// Get returns the user's goals, creating a defaults row on first access.
func (s *GoalService) Get(ctx context.Context, userID string) (*models.Goal, error) {
	return s.store.GetGoal(userID)
}

// UpdateGoalInput carries the editable goal fields. Nil pointers leave the
// stored value unchanged.
type UpdateGoalInput struct {
	TargetCalories  *int
	TargetProtein   *float64
	TargetCarbs     *float64
	TargetFat       *float64
	TargetFiber     *float64
	TargetWeight    *float64
	TrainingRoutine *string
}

func (s *GoalService) Update(ctx context.Context, userID string, in UpdateGoalInput) (*models.Goal, error) {
	goal, err := s.store.GetGoal(userID)
	if err != nil {
		return nil, err
	}

	if in.TargetCalories != nil {
		if *in.TargetCalories <= 0 {
			return nil, errors.Join(ErrInvalidGoal, errors.New("target_calories must be > 0"))
		}
		goal.TargetCalories = *in.TargetCalories
	}
	if in.TargetProtein != nil {
		goal.TargetProtein = *in.TargetProtein
	}
	if in.TargetCarbs != nil {
		goal.TargetCarbs = *in.TargetCarbs
	}
	if in.TargetFat != nil {
		goal.TargetFat = *in.TargetFat
	}
	if in.TargetFiber != nil {
		goal.TargetFiber = *in.TargetFiber
	}
	if in.TargetWeight != nil {
		goal.TargetWeight = in.TargetWeight
	}
	if in.TrainingRoutine != nil {
		switch *in.TrainingRoutine {
		case "ppl", "5day", "custom":
			goal.TrainingRoutine = *in.TrainingRoutine
		default:
			return nil, errors.Join(ErrInvalidGoal, errors.New("training_routine must be ppl, 5day or custom"))
		}
	}

	if err := s.store.SaveGoal(goal); err != nil {
		return nil, err
	}
	return goal, nil
}
