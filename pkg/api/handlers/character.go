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

// HandleListCharacters returns the caller's characters as summaries, ordered
// by slot number.
func HandleListCharacters(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		player, err := currentPlayer(r, repository)
		if err != nil {
			return err
		}
		characters, err := repository.ListCharacters(r.Context(), player.ID)
		if err != nil {
			return fmt.Errorf("failed to list characters: %w", err)
		}
		summaries := make([]*models.CharacterSummary, 0, len(characters))
		for _, character := range characters {
			summaries = append(summaries, character.Summary())
		}
		response.Success(w, r, http.StatusOK, summaries)
		return nil
	}
}

// HandleCreateCharacter validates the creation request, checks slot
// availability, derives the starting resources from the submitted attributes
// and inserts the character.
func HandleCreateCharacter(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		player, err := currentPlayer(r, repository)
		if err != nil {
			return err
		}

		req := &models.CharacterCreate{}
		if err := decodeJSON(r, req); err != nil {
			return err
		}
		req.Normalize()
		if err := models.Validate(req); err != nil {
			return err
		}

		taken, err := repository.SlotTaken(r.Context(), player.ID, req.SlotNumber)
		if err != nil {
			return fmt.Errorf("failed to check slot: %w", err)
		}
		if taken {
			return slotConflict(req.SlotNumber)
		}

		character, err := repository.CreateCharacter(r.Context(), models.NewCharacter(player.ID, req))
		if err != nil {
			if repositories.IsConflict(err) {
				// lost the race between the slot check and the insert; the
				// store's unique constraint is the backstop
				return slotConflict(req.SlotNumber)
			}
			return fmt.Errorf("failed to create character: %w", err)
		}
		response.Success(w, r, http.StatusCreated, character)
		return nil
	}
}

func slotConflict(slot int) *apierrors.Error {
	return apierrors.NewConflict(fmt.Sprintf("Slot %d is already occupied", slot), map[string]interface{}{
		"slot_number": slot,
	})
}

// HandleGetCharacter returns a full character after the ownership check.
func HandleGetCharacter(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		character, err := ownedCharacter(r, repository)
		if err != nil {
			return err
		}
		response.Success(w, r, http.StatusOK, character)
		return nil
	}
}

// HandleUpdateCharacter applies a sparse patch and returns the merged
// character. An empty patch is rejected before the store write.
func HandleUpdateCharacter(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		character, err := ownedCharacter(r, repository)
		if err != nil {
			return err
		}

		update := &models.CharacterUpdate{}
		if err := decodeJSON(r, update); err != nil {
			return err
		}
		if update.IsEmpty() {
			return apierrors.NewValidation("Update payload has no fields to update", nil)
		}
		if err := models.Validate(update); err != nil {
			return err
		}

		updated, err := repository.UpdateCharacter(r.Context(), character.ID, update.Fields())
		if err != nil {
			if repositories.IsNotFound(err) {
				return apierrors.NewNotFound("character", character.ID)
			}
			return fmt.Errorf("failed to update character: %w", err)
		}
		response.Success(w, r, http.StatusOK, updated)
		return nil
	}
}

// HandleSaveCharacter writes a full snapshot of the transient gameplay state
// and stamps last_played_at.
func HandleSaveCharacter(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		character, err := ownedCharacter(r, repository)
		if err != nil {
			return err
		}

		save := &models.CharacterSave{}
		if err := decodeJSON(r, save); err != nil {
			return err
		}
		if err := models.Validate(save); err != nil {
			return err
		}

		fields := save.Fields()
		fields["last_played_at"] = time.Now().UTC()
		updated, err := repository.UpdateCharacter(r.Context(), character.ID, fields)
		if err != nil {
			if repositories.IsNotFound(err) {
				return apierrors.NewNotFound("character", character.ID)
			}
			return fmt.Errorf("failed to save character: %w", err)
		}
		response.Success(w, r, http.StatusOK, updated)
		return nil
	}
}

// HandleDeleteCharacter permanently removes a character. No soft-delete.
func HandleDeleteCharacter(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		character, err := ownedCharacter(r, repository)
		if err != nil {
			return err
		}
		if err := repository.DeleteCharacter(r.Context(), character.ID); err != nil {
			if repositories.IsNotFound(err) {
				return apierrors.NewNotFound("character", character.ID)
			}
			return fmt.Errorf("failed to delete character: %w", err)
		}
		response.NoContent(w)
		return nil
	}
}

// HandleUpdatePlaytime adds a seconds increment to the character's and the
// owning player's cumulative counters. The increment is recorded as
// submitted; there is no bound or sign check on it.
func HandleUpdatePlaytime(repository repositories.Repository) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		character, err := ownedCharacter(r, repository)
		if err != nil {
			return err
		}

		req := &models.PlaytimeUpdate{}
		if err := decodeJSON(r, req); err != nil {
			return err
		}

		updated, err := repository.AddPlaytime(r.Context(), character.ID, character.PlayerID, req.Seconds)
		if err != nil {
			if repositories.IsNotFound(err) {
				return apierrors.NewNotFound("character", character.ID)
			}
			return fmt.Errorf("failed to update playtime: %w", err)
		}
		response.Success(w, r, http.StatusOK, updated)
		return nil
	}
}
