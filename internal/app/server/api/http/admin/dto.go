package admin

import (
	"changelog/internal/infrastructure/storage"
)

type reloadOutput struct {
	Body reloadResponse
}

type reloadResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Records int    `json:"records"`
}

type gcInput struct {
	Body gcRequest
}

type gcRequest struct {
	RetentionDays int `json:"retention_days,omitempty" minimum:"0" doc:"Срок хранения удаленных записей; 0 - значение из конфига"`
}

type gcOutput struct {
	Body gcResponse
}

type gcResponse struct {
	Removed       int `json:"removed"`
	RetentionDays int `json:"retention_days"`
}

type statsOutput struct {
	Body storage.Stats
}
