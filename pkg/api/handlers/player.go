package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cbodonnell/openworld-api/pkg/api/response"
	"github.com/cbodonnell/openworld-api/pkg/apierrors"
	"github.com/cbodonnell/openworld-api/pkg/repositories"
	"github.com/cbodonnell/openworld-api/pkg/repositories/models"
)

// HandleGetPlayer returns the caller's player profile.
func HandleGetPlayer(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		player, err := currentPlayer(r, repository)
		if err != nil {
			return err
		}
		response.Success(w, r, http.StatusOK, player)
		return nil
	}
}

// HandleUpdatePlayer applies a sparse profile patch and returns the merged
// player. An empty patch is rejected before the store is contacted.
func HandleUpdatePlayer(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		player, err := currentPlayer(r, repository)
		if err != nil {
			return err
		}

		update := &models.PlayerUpdate{}
		if err := decodeJSON(r, update); err != nil {
			return err
		}
		if update.IsEmpty() {
			return apierrors.NewValidation("Update payload has no fields to update", nil)
		}
		if err := models.Validate(update); err != nil {
			return err
		}

		fields, err := update.Fields()
		if err != nil {
			return err
		}
		updated, err := repository.UpdatePlayer(r.Context(), player.ID, fields)
		if err != nil {
			if repositories.IsNotFound(err) {
				return apierrors.NewNotFound("player", player.ID)
			}
			return fmt.Errorf("failed to update player: %w", err)
		}
		response.Success(w, r, http.StatusOK, updated)
		return nil
	}
}

// HandleRecordLogin increments the caller's login count and stamps the login
// time. Not idempotent: every call increments.
func HandleRecordLogin(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		player, err := currentPlayer(r, repository)
		if err != nil {
			return err
		}

		updated, err := repository.UpdatePlayer(r.Context(), player.ID, map[string]interface{}{
			"login_count": player.LoginCount + 1,
			"last_login":  time.Now().UTC(),
		})
		if err != nil {
			if repositories.IsNotFound(err) {
				return apierrors.NewNotFound("player", player.ID)
			}
			return fmt.Errorf("failed to record login: %w", err)
		}
		response.Success(w, r, http.StatusOK, updated)
		return nil
	}
}
