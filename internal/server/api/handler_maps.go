package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/showmeapp/showme/internal/common"
	"github.com/showmeapp/showme/internal/logging"
	"github.com/showmeapp/showme/internal/server/storage"
)

var mapColumns = map[string]struct{}{
	"id": {}, "name": {}, "is_private": {}, "access_token": {},
	"fuzzing_enabled": {}, "fuzzing_radius": {}, "created_at": {},
}

// MapHandler serves the /maps routes.
type MapHandler struct {
	store storage.Store
	log   logging.Logger
}

func NewMapHandler(store storage.Store, log logging.Logger) *MapHandler {
	return &MapHandler{store: store, log: log}
}

func (h *MapHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}
	if col, ok := unknownColumn(payload, mapColumns); ok {
		writeUnknownColumn(w, col, "maps")
		return
	}

	id := stringField(payload, "id")
	name := stringField(payload, "name")
	if id == "" || name == "" {
		writeError(w, http.StatusBadRequest, "", "id and name are required")
		return
	}

	createdAt, err := timeField(payload, "created_at", time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid created_at")
		return
	}

	row := storage.MapRow{
		ID:             id,
		Name:           name,
		IsPrivate:      boolField(payload, "is_private", false),
		FuzzingEnabled: boolField(payload, "fuzzing_enabled", false),
		FuzzingRadius:  100,
		CreatedAt:      createdAt,
	}
	if radius, ok := floatField(payload, "fuzzing_radius"); ok {
		row.FuzzingRadius = radius
	}
	if token := stringField(payload, "access_token"); token != "" {
		row.AccessToken = &token
	}

	if err := h.store.InsertMap(r.Context(), row); err != nil {
		if errors.Is(err, common.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "23505",
				`duplicate key value violates unique constraint "maps_pkey"`)
			return
		}
		h.log.Error(r.Context(), "map insert failed", "error", err)
		writeError(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *MapHandler) List(w http.ResponseWriter, r *http.Request) {
	filterID := ""
	if raw := r.URL.Query().Get("id"); raw != "" {
		v, ok := parseEqFilter(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "", "unsupported id filter")
			return
		}
		filterID = v
	}

	rows, err := h.store.Maps(r.Context(), filterID)
	if err != nil {
		h.log.Error(r.Context(), "map listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if rows == nil {
		rows = []storage.MapRow{}
	}

	if r.URL.Query().Get("select") == "id" {
		ids := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, map[string]string{"id": row.ID})
		}
		writeJSON(w, http.StatusOK, ids)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *MapHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids, ok := parseInFilter(r.URL.Query().Get("id"))
	if !ok {
		// an unfiltered DELETE would erase every client's rows
		writeError(w, http.StatusBadRequest, "", "id=in.(...) filter is required")
		return
	}

	if _, err := h.store.DeleteMaps(r.Context(), ids); err != nil {
		h.log.Error(r.Context(), "map deletion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
