package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/davidesra/fittrack/internal/middleware"
	"github.com/davidesra/fittrack/internal/services"

	"github.com/gin-gonic/gin"
)

type GoalHandler struct {
	goalService *services.GoalService
}

func NewGoalHandler(gs *services.GoalService) *GoalHandler {
	return &GoalHandler{goalService: gs}
}

// Get returns the user's goals, creating defaults on first access.
func (h *GoalHandler) Get(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	goal, err := h.goalService.Get(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[Goal] Get failed for user=%s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, goal)
}

type updateGoalRequest struct {
	TargetCalories  *int     `json:"target_calories"`
	TargetProtein   *float64 `json:"target_protein"`
	TargetCarbs     *float64 `json:"target_carbs"`
	TargetFat       *float64 `json:"target_fat"`
	TargetFiber     *float64 `json:"target_fiber"`
	TargetWeight    *float64 `json:"target_weight"`
	TrainingRoutine *string  `json:"training_routine"`
}

// Update applies a partial goal update. Absent fields keep their stored
// values.
func (h *GoalHandler) Update(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var req updateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	goal, err := h.goalService.Update(c.Request.Context(), userID, services.UpdateGoalInput{
		TargetCalories:  req.TargetCalories,
		TargetProtein:   req.TargetProtein,
		TargetCarbs:     req.TargetCarbs,
		TargetFat:       req.TargetFat,
		TargetFiber:     req.TargetFiber,
		TargetWeight:    req.TargetWeight,
		TrainingRoutine: req.TrainingRoutine,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidGoal) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_goal", "details": err.Error()})
			return
		}
		log.Printf("[Goal] Update failed for user=%s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, goal)
}
