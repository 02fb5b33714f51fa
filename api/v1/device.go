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

// registerDevice assigns a fresh device id to an installation. Reinstalls
// register again and get a new id, the old records stay behind and lose the
// resolution race by timestamp.
func (h *Handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	register := &model.DeviceRegisterRequest{}
	if err := json.NewDecoder(r.Body).Decode(register); err != nil {
		log.Error("Failed to decode request body", zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}
	if register.Name == "" {
		response.BadRequest(w, r, errors.New("device name is empty"))
		return
	}

	device, err := h.store.RegisterDevice(request.GetUserID(r), register.Name, register.Platform)
	if err != nil {
		log.Error("Failed to register device", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	log.Info("Registered device",
		zap.String("device_id", device.ID),
		zap.Int32("user_id", device.UserID),
		zap.String("platform", device.Platform),
	)
	response.Created(w, r, device)
}

func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	userID := request.GetUserID(r)
	devices, err := h.store.ListDevices(&model.FindDevice{UserID: &userID})
	if err != nil {
		log.Error("Failed to list devices", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, devices)
}
