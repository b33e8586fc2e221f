package store

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"time"

	"github.com/davidesra/fittrack/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true, // map driver duplicate-key errors to gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Workout{},
		&models.Goal{},
	); err != nil {
		return nil, err
	}

	store := &Store{db: db}

	if err := store.seedData(); err != nil {
		log.Printf("Warning: failed to seed data: %v", err)
	}

	return store, nil
}

// NewWithDB wraps an existing gorm connection. Used by tests.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Workout{},
		&models.Goal{},
	); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// generateRandomPassword generates a random password of specified length
func generateRandomPassword(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Use base64 URL encoding to get a safe, printable password
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

func (s *Store) seedData() error {
	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	if userCount > 0 {
		return nil
	}

	password, err := generateRandomPassword(16)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "demo",
		Email:        "demo@localhost",
		PasswordHash: string(hash),
		Name:         "Demo User",
	}
	if err := s.db.Create(user).Error; err != nil {
		return err
	}
	log.Printf("Created default user: demo / %s", password)
	return nil
}

// Health pings the underlying database connection.
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// User operations

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

func (s *Store) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return wrapError(s.db.Create(user).Error)
}

// UpsertGoogleUser creates or updates a user record from a Google sign-in.
// Users are matched by email so an existing credentials account gets linked
// rather than duplicated.
func (s *Store) UpsertGoogleUser(externalID, email, name, avatarURL string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error

	switch {
	case err == nil:
		user.AuthSource = "google"
		user.ExternalID = externalID
		user.Name = name
		user.AvatarURL = avatarURL
		if err := s.db.Save(&user).Error; err != nil {
			return nil, wrapError(err)
		}
		return &user, nil
	case err == gorm.ErrRecordNotFound:
		user = models.User{
			ID:         uuid.New().String(),
			Username:   email, // unique and stable; Google users sign in by redirect anyway
			Email:      email,
			Name:       name,
			AvatarURL:  avatarURL,
			AuthSource: "google",
			ExternalID: externalID,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, wrapError(err)
		}
		return &user, nil
	default:
		return nil, wrapError(err)
	}
}

// SetGarminCredentials persists the long-lived Garmin token pair on the user
// row. Called only by the token exchange flow after a successful handshake.
func (s *Store) SetGarminCredentials(userID, accessToken, accessTokenSecret string) error {
	now := time.Now()
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"garmin_access_token":        accessToken,
		"garmin_access_token_secret": accessTokenSecret,
		"garmin_connected_at":        &now,
	})
	if result.Error != nil {
		return wrapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearGarminCredentials removes the stored token pair (disconnect).
func (s *Store) ClearGarminCredentials(userID string) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"garmin_access_token":        "",
		"garmin_access_token_secret": "",
		"garmin_connected_at":        nil,
	})
	if result.Error != nil {
		return wrapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Workout operations

func (s *Store) CreateWorkout(workout *models.Workout) error {
	if workout.ID == "" {
		workout.ID = uuid.New().String()
	}
	if workout.LoggedAt.IsZero() {
		workout.LoggedAt = time.Now()
	}
	return wrapError(s.db.Create(workout).Error)
}

func (s *Store) GetWorkoutByID(userID, id string) (*models.Workout, error) {
	var workout models.Workout
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&workout).Error; err != nil {
		return nil, wrapError(err)
	}
	return &workout, nil
}

// GetWorkoutByGarminActivityID looks up an imported workout by its remote id.
// The lookup is not scoped to a user: a Garmin activity id is globally unique
// and the uniqueness constraint spans all rows.
func (s *Store) GetWorkoutByGarminActivityID(activityID string) (*models.Workout, error) {
	var workout models.Workout
	if err := s.db.Where("garmin_activity_id = ?", activityID).First(&workout).Error; err != nil {
		return nil, wrapError(err)
	}
	return &workout, nil
}

// ListWorkouts returns a user's workouts in the inclusive date range
// [from, to] (YYYY-MM-DD strings), newest first. Empty bounds are open.
func (s *Store) ListWorkouts(userID, from, to string) ([]models.Workout, error) {
	query := s.db.Where("user_id = ?", userID)
	if from != "" {
		query = query.Where("date >= ?", from)
	}
	if to != "" {
		query = query.Where("date <= ?", to)
	}

	var workouts []models.Workout
	if err := query.Order("date DESC, logged_at DESC").Find(&workouts).Error; err != nil {
		return nil, wrapError(err)
	}
	return workouts, nil
}

func (s *Store) DeleteWorkout(userID, id string) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Workout{})
	if result.Error != nil {
		return wrapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Goal operations

// GetGoal returns the user's goal row, creating a defaults row on first
// access.
func (s *Store) GetGoal(userID string) (*models.Goal, error) {
	var goal models.Goal
	err := s.db.Where("user_id = ?", userID).First(&goal).Error
	if err == gorm.ErrRecordNotFound {
		goal = models.Goal{
			ID:              uuid.New().String(),
			UserID:          userID,
			TargetCalories:  2000,
			TargetProtein:   150,
			TargetCarbs:     200,
			TargetFat:       65,
			TargetFiber:     30,
			TrainingRoutine: "ppl",
		}
		if err := s.db.Create(&goal).Error; err != nil {
			return nil, wrapError(err)
		}
		return &goal, nil
	}
	if err != nil {
		return nil, wrapError(err)
	}
	return &goal, nil
}

func (s *Store) SaveGoal(goal *models.Goal) error {
	return wrapError(s.db.Save(goal).Error)
}

// CountWorkoutsBySource returns per-source workout counts, used by the
// metrics gauge updater.
func (s *Store) CountWorkoutsBySource(source string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Workout{}).Where("source = ?", source).Count(&count).Error
	return count, wrapError(err)
}

// CountConnectedUsers returns the number of users with stored Garmin
// credentials.
func (s *Store) CountConnectedUsers() (int64, error) {
	var count int64
	err := s.db.Model(&models.User{}).
		Where("garmin_access_token <> '' AND garmin_access_token_secret <> ''").
		Count(&count).Error
	return count, wrapError(err)
}
