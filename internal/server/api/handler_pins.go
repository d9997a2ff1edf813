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

var pinColumns = map[string]struct{}{
	"id": {}, "map_id": {}, "lat": {}, "lng": {}, "type": {}, "tags": {},
	"description": {}, "photo_urls": {}, "expires_at": {}, "created_at": {}, "updated_at": {},
}

// PinHandler serves the /pins routes.
type PinHandler struct {
	store storage.Store
	log   logging.Logger
}

func NewPinHandler(store storage.Store, log logging.Logger) *PinHandler {
	return &PinHandler{store: store, log: log}
}

func (h *PinHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}
	if col, ok := unknownColumn(payload, pinColumns); ok {
		writeUnknownColumn(w, col, "pins")
		return
	}

	id := stringField(payload, "id")
	mapID := stringField(payload, "map_id")
	lat, latOK := floatField(payload, "lat")
	lng, lngOK := floatField(payload, "lng")
	if id == "" || mapID == "" || !latOK || !lngOK {
		writeError(w, http.StatusBadRequest, "", "id, map_id, lat and lng are required")
		return
	}

	now := time.Now().UTC()
	createdAt, err := timeField(payload, "created_at", now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid created_at")
		return
	}
	updatedAt, err := timeField(payload, "updated_at", now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid updated_at")
		return
	}

	row := storage.PinRow{
		ID:          id,
		MapID:       mapID,
		Lat:         lat,
		Lng:         lng,
		Type:        "other",
		Tags:        stringSliceField(payload, "tags"),
		Description: stringField(payload, "description"),
		PhotoURLs:   stringSliceField(payload, "photo_urls"),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	if typ := stringField(payload, "type"); typ != "" {
		row.Type = typ
	}
	if raw := stringField(payload, "expires_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "", "invalid expires_at")
			return
		}
		row.ExpiresAt = &t
	}

	if err := h.store.InsertPin(r.Context(), row); err != nil {
		switch {
		case errors.Is(err, common.ErrForeignKey):
			writeError(w, http.StatusConflict, "23503",
				`insert or update on table "pins" violates foreign key constraint "pins_map_id_fkey"`)
		case errors.Is(err, common.ErrDuplicateKey):
			writeError(w, http.StatusConflict, "23505",
				`duplicate key value violates unique constraint "pins_pkey"`)
		default:
			h.log.Error(r.Context(), "pin insert failed", "error", err)
			writeError(w, http.StatusInternalServerError, "", "internal error")
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *PinHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.Pins(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "pin listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if rows == nil {
		rows = []storage.PinRow{}
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

func (h *PinHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids, ok := parseInFilter(r.URL.Query().Get("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "", "id=in.(...) filter is required")
		return
	}

	if _, err := h.store.DeletePins(r.Context(), ids); err != nil {
		h.log.Error(r.Context(), "pin deletion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
