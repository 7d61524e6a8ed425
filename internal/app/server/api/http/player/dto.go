package player

import (
	"time"

	"changelog/internal/domain/reward"
)

type playerInput struct {
	Player string `path:"player" minLength:"1" maxLength:"64" doc:"Идентификатор игрока"`
}

type claimInput struct {
	Player string `path:"player" minLength:"1" maxLength:"64" doc:"Идентификатор игрока"`
	Type   string `path:"type" doc:"Тип награды"`
}

type visitOutput struct {
	Body visitResponse
}

type visitResponse struct {
	Player   string        `json:"player"`
	NewCount int           `json:"new_count" doc:"Новых записей с прошлого просмотра"`
	Reward   *reward.Grant `json:"reward,omitempty" doc:"Награда за просмотр, если выпала"`
}

type summaryOutput struct {
	Body summaryResponse
}

type summaryResponse struct {
	Player   string         `json:"player"`
	LastSeen *time.Time     `json:"last_seen,omitempty"`
	NewCount int            `json:"new_count"`
	Rewards  []rewardStatus `json:"rewards"`
}

type rewardStatus struct {
	Type           string `json:"type"`
	Enabled        bool   `json:"enabled"`
	Available      bool   `json:"available"`
	RemainingHours int64  `json:"remaining_hours"`
}

type claimOutput struct {
	Body reward.Grant
}
