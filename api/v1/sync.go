package v1

import (
	"encoding/json"
	"net/http"

	"pagemark/http/request"
	"pagemark/http/response"
	"pagemark/log"
	"pagemark/model"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type syncPushResponse struct {
	Received int `json:"received"`
	Applied  int `json:"applied"`
}

// syncPush accepts a batch of the calling device's own records. Records
// keyed under another device are rejected, each device owns its key and
// nothing else.
func (h *Handler) syncPush(w http.ResponseWriter, r *http.Request) {
	device, err := h.deviceFromRequest(r)
	if err != nil {
		log.Debug("Rejecting sync push", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}

	var records []*model.SyncRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		log.Error("Failed to decode request body", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}

	applied := 0
	for _, record := range records {
		if record.DeviceID != device.ID {
			response.BadRequest(w, r, errors.Errorf("record %s/%s does not belong to device %s",
				record.BookID, record.DeviceID, device.ID))
			return
		}
		ok, err := h.store.ApplySyncRecord(record)
		if err != nil {
			log.Error("Failed to apply sync record",
				zap.String("book_id", record.BookID),
				zap.String("device_id", record.DeviceID),
				zap.Error(err),
			)
			response.ServerError(w, r, err)
			return
		}
		if ok {
			applied++
		}
	}

	if err := h.store.TouchDevice(device.ID); err != nil {
		log.Warn("Failed to touch device", zap.String("device_id", device.ID), zap.Error(err))
	}

	log.Debug("Applied sync push",
		zap.String("device_id", device.ID),
		zap.Int("received", len(records)),
		zap.Int("applied", applied),
	)
	response.OK(w, r, syncPushResponse{Received: len(records), Applied: applied})
}

// syncPull returns every record changed since the given millisecond
// timestamp. A device passes the highest updated_ts it has seen and gets
// the delta, since=0 returns everything.
func (h *Handler) syncPull(w http.ResponseWriter, r *http.Request) {
	device, err := h.deviceFromRequest(r)
	if err != nil {
		log.Debug("Rejecting sync pull", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}

	since := request.QueryInt64Param(r, "since", 0)
	records, err := h.store.ListChangedRecords(since)
	if err != nil {
		log.Error("Failed to list changed records", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	if err := h.store.TouchDevice(device.ID); err != nil {
		log.Warn("Failed to touch device", zap.String("device_id", device.ID), zap.Error(err))
	}
	response.OK(w, r, records)
}

type migrateResponse struct {
	DroppedSessions int `json:"dropped_sessions"`
}

func (h *Handler) migrateHistory(w http.ResponseWriter, r *http.Request) {
	dropped, err := h.store.MigrateAndPruneHistory()
	if err != nil {
		log.Error("Failed to migrate session history", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	log.Info("Migrated session history",
		zap.Int("dropped_sessions", dropped),
		zap.String("triggered_by", request.GetUsername(r)),
	)
	response.OK(w, r, migrateResponse{DroppedSessions: dropped})
}
