// Package handlers implements the per-endpoint logic: resolve the caller,
// enforce ownership, validate the payload, delegate to the store, and shape
// the result.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cbodonnell/openworld-api/pkg/api/middleware"
	"github.com/cbodonnell/openworld-api/pkg/apierrors"
	"github.com/cbodonnell/openworld-api/pkg/repositories"
	"github.com/cbodonnell/openworld-api/pkg/repositories/models"
)

// callerID returns the caller identity resolved by the auth middleware. A
// missing identity on a protected route is a wiring bug, not a client error.
func callerID(r *http.Request) (string, error) {
	uid, ok := middleware.CallerID(r.Context())
	if !ok {
		return "", fmt.Errorf("caller missing from request context")
	}
	return uid, nil
}

// currentPlayer resolves the caller's player record from the store.
func currentPlayer(r *http.Request, repository repositories.Repository) (*models.Player, error) {
	uid, err := callerID(r)
	if err != nil {
		return nil, err
	}
	player, err := repository.GetPlayerByAuthID(r.Context(), uid)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apierrors.NewNotFound("player", uid)
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// ownedCharacter resolves the addressed character together with its owner in
// one lookup and enforces ownership. Absence is checked before ownership, so
// a caller can distinguish 404 from 403; that existence leak is a deliberate
// part of the contract.
func ownedCharacter(r *http.Request, repository repositories.Repository) (*models.Character, error) {
	uid, err := callerID(r)
	if err != nil {
		return nil, err
	}
	characterID, err := characterIDVar(r)
	if err != nil {
		return nil, err
	}
	character, ownerAuthID, err := repository.GetCharacterWithOwner(r.Context(), characterID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apierrors.NewNotFound("character", characterID)
		}
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	if ownerAuthID != uid {
		return nil, apierrors.NewForbidden("Character belongs to another player")
	}
	return character, nil
}

func characterIDVar(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["characterID"]
	characterID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierrors.NewValidation("characterID must be a valid UUID", map[string]interface{}{
			"characterID": raw,
		})
	}
	return characterID, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierrors.NewValidation("Request body is not valid JSON", nil)
	}
	return nil
}
