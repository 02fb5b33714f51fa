package v1

import (
	"encoding/json"
	"net/http"

	"pagemark/http/request"
	"pagemark/http/response"
	"pagemark/log"
	"pagemark/model"
	"pagemark/util"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// getProgress returns the resolved position for a book from the calling
// device's point of view. The local device's records win over newer remote
// ones as long as they are past the validity threshold.
func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	device, err := h.deviceFromRequest(r)
	if err != nil {
		log.Debug("Rejecting progress read", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}
	bookID := request.RouteStringParam(r, "bookID")

	progress, err := h.store.ResolveProgress(bookID, device.ID)
	if err != nil {
		log.Error("Failed to resolve progress", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	if progress == nil {
		response.NotFound(w, r)
		return
	}

	if err := h.store.TouchDevice(device.ID); err != nil {
		log.Warn("Failed to touch device", zap.String("device_id", device.ID), zap.Error(err))
	}
	response.OK(w, r, progress)
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	device, err := h.deviceFromRequest(r)
	if err != nil {
		log.Debug("Rejecting location update", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}
	bookID := request.RouteStringParam(r, "bookID")

	update := &model.UpdateLocationRequest{}
	if err := json.NewDecoder(r.Body).Decode(update); err != nil {
		log.Error("Failed to decode request body", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}
	if update.Cfi == "" {
		response.BadRequest(w, r, errors.New("cfi is empty"))
		return
	}

	progress, err := h.store.UpdateLocation(bookID, device.ID, update.Cfi, update.Percentage)
	if err != nil {
		log.Error("Failed to update location",
			zap.String("book_id", bookID),
			zap.String("device_id", device.ID),
			zap.Error(err),
		)
		response.ServerError(w, r, err)
		return
	}

	h.queueSyncLog(r, bookID, device.ID)
	response.OK(w, r, progress)
}

func (h *Handler) updateReadingSession(w http.ResponseWriter, r *http.Request) {
	device, err := h.deviceFromRequest(r)
	if err != nil {
		log.Debug("Rejecting session update", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}
	bookID := request.RouteStringParam(r, "bookID")

	update := &model.UpdateSessionRequest{}
	if err := json.NewDecoder(r.Body).Decode(update); err != nil {
		log.Error("Failed to decode request body", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}
	if update.Cfi == "" {
		response.BadRequest(w, r, errors.New("cfi is empty"))
		return
	}
	for _, u := range update.Updates {
		if u.Range == "" {
			response.BadRequest(w, r, errors.New("range is empty"))
			return
		}
	}

	progress, err := h.store.UpdateReadingSession(bookID, device.ID, update.Cfi, update.Percentage, update.Updates)
	if err != nil {
		log.Error("Failed to update reading session",
			zap.String("book_id", bookID),
			zap.String("device_id", device.ID),
			zap.Error(err),
		)
		response.ServerError(w, r, err)
		return
	}

	h.queueSyncLog(r, bookID, device.ID)
	response.OK(w, r, progress)
}

// queueSyncLog hands the changed pair to the worker pool. The write already
// committed, the replication log entry is best effort and off the hot path.
func (h *Handler) queueSyncLog(r *http.Request, bookID, deviceID string) {
	h.syncPool.Push(model.Job{
		UserID:    request.GetUserID(r),
		BookID:    bookID,
		DeviceID:  deviceID,
		Type:      model.JobTypeSyncLog,
		Status:    model.JobStatusPending,
		UpdatedTs: util.NowMs(),
	})
}
