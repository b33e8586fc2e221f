package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/davidesra/fittrack/internal/garmin"
	"github.com/davidesra/fittrack/internal/models"
	"github.com/davidesra/fittrack/internal/store"
)

// ConnectAttempt is the outcome of step 1 of the Garmin handshake: the
// request token pair to place in custody and the URL to send the user's
// browser to.
type ConnectAttempt struct {
	AuthorizeURL string
	Token        string
	Secret       string
}

// SyncResult reports one import run: how many remote activities were
// considered and how many produced new local workouts.
type SyncResult struct {
	Synced int
	Total  int
}

// GarminService orchestrates the token exchange flow and the activity
// importer on top of the protocol client and the store.
type GarminService struct {
	client      *garmin.Client
	store       *store.Store
	callbackURL string
	syncWindow  time.Duration
}

func NewGarminService(
	client *garmin.Client,
	s *store.Store,
	callbackURL string,
	syncWindowDays int,
) *GarminService {
	if syncWindowDays <= 0 {
		syncWindowDays = 30
	}
	return &GarminService{
		client:      client,
		store:       s,
		callbackURL: callbackURL,
		syncWindow:  time.Duration(syncWindowDays) * 24 * time.Hour,
	}
}

// StartConnect performs step 1: obtain a fresh request token announcing our
// callback URL. The caller places the returned pair in custody and redirects
// the browser to AuthorizeURL.
func (s *GarminService) StartConnect(ctx context.Context) (*ConnectAttempt, error) {
	token, err := s.client.RequestToken(ctx, s.callbackURL)
	if err != nil {
		return nil, err
	}
	return &ConnectAttempt{
		AuthorizeURL: s.client.AuthorizeURL(token.Key),
		Token:        token.Key,
		Secret:       token.Secret,
	}, nil
}

// CompleteConnect performs step 3: exchange the custodied request token pair
// plus the provider's verifier for the long-lived access pair, then persist
// it on the user row. The caller has already validated that the callback's
// oauth_token matches the custodied one.
func (s *GarminService) CompleteConnect(
	ctx context.Context,
	userID, requestToken, requestSecret, verifier string,
) error {
	access, err := s.client.ExchangeToken(
		ctx,
		&garmin.Token{Key: requestToken, Secret: requestSecret},
		verifier,
	)
	if err != nil {
		return err
	}

	if err := s.store.SetGarminCredentials(userID, access.Key, access.Secret); err != nil {
		return err
	}

	log.Printf("[Garmin] Connected user=%s", userID)
	return nil
}

// Sync fetches remote activities for the window [start, end] and reconciles
// them into local workouts. Passing zero times selects the default trailing
// window. Safe to re-run over overlapping windows: activities whose remote id
// is already present are skipped.
func (s *GarminService) Sync(
	ctx context.Context,
	userID string,
	start, end time.Time,
) (*SyncResult, error) {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if !user.GarminConnected() {
		return nil, garmin.ErrNotConnected
	}

	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.Add(-s.syncWindow)
	}

	activities, err := s.client.FetchActivities(ctx, &garmin.Token{
		Key:    user.GarminAccessToken,
		Secret: user.GarminAccessTokenSecret,
	}, start, end)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Total: len(activities)}
	for _, activity := range activities {
		inserted, err := s.importActivity(userID, activity)
		if err != nil {
			return nil, err
		}
		if inserted {
			result.Synced++
		}
	}

	log.Printf("[Garmin] Sync user=%s synced=%d total=%d", userID, result.Synced, result.Total)
	return result, nil
}

// Status reports whether the user has a stored Garmin access pair and, if
// so, when it was saved.
func (s *GarminService) Status(ctx context.Context, userID string) (bool, *time.Time, error) {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return false, nil, err
	}
	if !user.GarminConnected() {
		return false, nil, nil
	}
	return true, user.GarminConnectedAt, nil
}

// Disconnect drops the stored access pair. Previously imported workouts are
// kept.
func (s *GarminService) Disconnect(ctx context.Context, userID string) error {
	if err := s.store.ClearGarminCredentials(userID); err != nil {
		return err
	}
	log.Printf("[Garmin] Disconnected user=%s", userID)
	return nil
}

// importActivity inserts one remote activity unless its remote id is already
// present. A duplicate-key error on insert is treated the same as the
// pre-check finding a row: the unique index is the real idempotency
// guarantee, the lookup just avoids pointless insert attempts.
func (s *GarminService) importActivity(userID string, activity garmin.Activity) (bool, error) {
	remoteID := activity.ActivityID.String()
	if remoteID == "" {
		return false, nil
	}

	_, err := s.store.GetWorkoutByGarminActivityID(remoteID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	name := activity.ActivityName
	if name == "" {
		name = activity.ActivityType
	}

	workout := &models.Workout{
		UserID:           userID,
		Name:             name,
		Date:             time.Unix(activity.StartTimeInSeconds, 0).UTC().Format("2006-01-02"),
		DurationMinutes:  int(math.Round(activity.DurationInSeconds / 60)),
		CaloriesBurned:   activity.ActiveKilocalories,
		ActivityType:     garmin.MapActivityType(activity.ActivityType),
		GarminActivityID: &remoteID,
		Source:           models.WorkoutSourceGarmin,
	}

	err = s.store.CreateWorkout(workout)
	if errors.Is(err, store.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
