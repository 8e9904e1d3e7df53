package handler

import "medadmit/internal/resolver/models"

// ResolveBatchResponse is the HTTP response for POST /resolve.
type ResolveBatchResponse struct {
	Success bool              `json:"success"`
	Results *models.ResultSet `json:"results"`
	Stats   models.BatchStats `json:"stats"`
}

// ResolveSingleResponse is the HTTP response for GET /resolve.
type ResolveSingleResponse struct {
	Success    bool              `json:"success"`
	Identifier string            `json:"identifier"`
	Type       models.EntityType `json:"type"`
	Result     models.Result     `json:"result"`
}
