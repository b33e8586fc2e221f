package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/davidesra/fittrack/internal/metrics"
	"github.com/davidesra/fittrack/internal/middleware"
	"github.com/davidesra/fittrack/internal/models"
	"github.com/davidesra/fittrack/internal/services"

	"github.com/gin-gonic/gin"
)

type WorkoutHandler struct {
	workoutService *services.WorkoutService
	metrics        metrics.Recorder
}

func NewWorkoutHandler(ws *services.WorkoutService, m metrics.Recorder) *WorkoutHandler {
	return &WorkoutHandler{workoutService: ws, metrics: m}
}

type createWorkoutRequest struct {
	Name            string   `json:"name"`
	Date            string   `json:"date"`
	DurationMinutes int      `json:"duration_minutes"`
	CaloriesBurned  *float64 `json:"calories_burned"`
	ActivityType    string   `json:"activity_type"`
	PerceivedEffort *int     `json:"perceived_effort"`
	Notes           string   `json:"notes"`
}

// Create logs a manual workout for the authenticated user.
func (h *WorkoutHandler) Create(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var req createWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	workout, err := h.workoutService.Create(c.Request.Context(), userID, services.CreateWorkoutInput{
		Name:            req.Name,
		Date:            req.Date,
		DurationMinutes: req.DurationMinutes,
		CaloriesBurned:  req.CaloriesBurned,
		ActivityType:    req.ActivityType,
		PerceivedEffort: req.PerceivedEffort,
		Notes:           req.Notes,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidWorkout) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_workout", "details": err.Error()})
			return
		}
		log.Printf("[Workout] Create failed for user=%s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	h.metrics.RecordWorkoutCreated(models.WorkoutSourceManual)
	c.JSON(http.StatusCreated, workout)
}

// List returns the user's workouts, optionally bounded by ?from and ?to
// dates (inclusive, YYYY-MM-DD).
func (h *WorkoutHandler) List(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	workouts, err := h.workoutService.List(c.Request.Context(), userID, c.Query("from"), c.Query("to"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidWorkout) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err.Error()})
			return
		}
		log.Printf("[Workout] List failed for user=%s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workouts": workouts})
}

// Delete removes one of the user's workouts.
func (h *WorkoutHandler) Delete(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	if err := h.workoutService.Delete(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, services.ErrWorkoutNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workout_not_found"})
			return
		}
		log.Printf("[Workout] Delete failed for user=%s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	h.metrics.RecordWorkoutDeleted(models.WorkoutSourceManual)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
