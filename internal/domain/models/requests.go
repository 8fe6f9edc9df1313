package models

// Requests for the engine control API. Defined in domain for consistency and reuse.

type SensitivityRequest struct {
	Sensitivity float64 `query:"sensitivity" json:"sensitivity" validate:"gte=0,lte=1"`
}

type CalibrationRequest struct {
	IdleSeconds    int `query:"idle_seconds" json:"idle_seconds" default:"5" validate:"gte=1,lte=60"`
	WalkingSeconds int `query:"walking_seconds" json:"walking_seconds" default:"15" validate:"gte=5,lte=120"`
}

type LogsRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
