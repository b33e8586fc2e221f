package garmin

import (
	"encoding/json"
	"strings"
)

// Activity is a single record from the Garmin wellness activities endpoint.
type Activity struct {
	ActivityID         json.Number `json:"activityId"`
	ActivityName       string      `json:"activityName"`
	ActivityType       string      `json:"activityType"`
	StartTimeInSeconds int64       `json:"startTimeInSeconds"`
	DurationInSeconds  float64     `json:"durationInSeconds"`
	ActiveKilocalories *float64    `json:"activeKilocalories,omitempty"`
	DistanceInMeters   *float64    `json:"distanceInMeters,omitempty"`
	AverageHeartRate   *int        `json:"averageHeartRateInBeatsPerMinute,omitempty"`
}

// activityList is the enveloped response shape some API versions return.
type activityList struct {
	ActivityList []Activity `json:"activityList"`
}

// decodeActivities accepts both response shapes Garmin is known to produce:
// a bare JSON array, or an object wrapping it in "activityList".
func decodeActivities(body []byte) ([]Activity, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var activities []Activity
		if err := json.Unmarshal(body, &activities); err != nil {
			return nil, err
		}
		return activities, nil
	}

	var wrapped activityList
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.ActivityList, nil
}

// activityTypeMap translates Garmin's activity type vocabulary to the
// internal classification used for workouts.
var activityTypeMap = map[string]string{
	"RUNNING":           "run",
	"CYCLING":           "cycle",
	"SWIMMING":          "swim",
	"STRENGTH_TRAINING": "strength",
	"WALKING":           "walk",
	"HIKING":            "hike",
	"YOGA":              "yoga",
	"CARDIO":            "cardio",
}

// MapActivityType maps a Garmin activity type to the internal type. The
// match is case-insensitive; unrecognized types map to "other".
func MapActivityType(garminType string) string {
	if mapped, ok := activityTypeMap[strings.ToUpper(garminType)]; ok {
		return mapped
	}
	return "other"
}
