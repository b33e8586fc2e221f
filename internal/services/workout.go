package services

import (
	"context"
	"errors"
	"regexp"

	"github.com/davidesra/fittrack/internal/models"
	"github.com/davidesra/fittrack/internal/store"
)

var (
	ErrWorkoutNotFound = errors.New("workout not found")
	ErrInvalidWorkout  = errors.New("invalid workout")
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type WorkoutService struct {
	store *store.Store
}

func NewWorkoutService(s *store.Store) *WorkoutService {
	return &WorkoutService{store: s}
}

// CreateWorkoutInput is a manual workout entry. Imported workouts never pass
// through here; only the Garmin importer may set a remote activity id.
type CreateWorkoutInput struct {
	Name            string
	Date            string // YYYY-MM-DD
	DurationMinutes int
	CaloriesBurned  *float64
	ActivityType    string
	PerceivedEffort *int
	Notes           string
}

func (in *CreateWorkoutInput) validate() error {
	if in.Name == "" {
		return errors.New("name is required")
	}
	if !dateRe.MatchString(in.Date) {
		return errors.New("date must be YYYY-MM-DD")
	}
	if in.DurationMinutes < 0 {
		return errors.New("duration_minutes must be >= 0")
	}
	if in.PerceivedEffort != nil && (*in.PerceivedEffort < 1 || *in.PerceivedEffort > 10) {
		return errors.New("perceived_effort must be between 1 and 10")
	}
	return nil
}

func (s *WorkoutService) Create(ctx context.Context, userID string, in CreateWorkoutInput) (*models.Workout, error) {
	if err := in.validate(); err != nil {
		return nil, errors.Join(ErrInvalidWorkout, err)
	}

	activityType := in.ActivityType
	if activityType == "" {
		activityType = "strength"
	}

	workout := &models.Workout{
		UserID:          userID,
		Name:            in.Name,
		Date:            in.Date,
		DurationMinutes: in.DurationMinutes,
		CaloriesBurned:  in.CaloriesBurned,
		ActivityType:    activityType,
		PerceivedEffort: in.PerceivedEffort,
		Notes:           in.Notes,
		Source:          models.WorkoutSourceManual,
	}
	if err := s.store.CreateWorkout(workout); err != nil {
		return nil, err
	}
	return workout, nil
}

func (s *WorkoutService) List(ctx context.Context, userID, from, to string) ([]models.Workout, error) {
	if from != "" && !dateRe.MatchString(from) {
		return nil, errors.Join(ErrInvalidWorkout, errors.New("from must be YYYY-MM-DD"))
	}
	if to != "" && !dateRe.MatchString(to) {
		return nil, errors.Join(ErrInvalidWorkout, errors.New("to must be YYYY-MM-DD"))
	}
	return s.store.ListWorkouts(userID, from, to)
}

// Delete removes a workout. Imported workouts are deletable like any other;
// nothing remembers the remote activity id afterwards, so a later sync over
// the same window will import it again. Accepted behavior.
func (s *WorkoutService) Delete(ctx context.Context, userID, id string) error {
	err := s.store.DeleteWorkout(userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrWorkoutNotFound
	}
	return err
}
