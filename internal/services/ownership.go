package services

import (
	"github.com/vidshare/backend/internal/apperrors"
	"github.com/vidshare/backend/internal/models"
)

// requireOwner is the only authorization rule: a video may be mutated by its owner alone.
func requireOwner(video models.Video, accountID string) error {
	if video.ID == "" {
		return apperrors.NotFound("video not found")
	}
	if accountID == "" || video.OwnerID != accountID {
		return apperrors.Forbidden("you do not have permission to modify this video")
	}
	return nil
}
