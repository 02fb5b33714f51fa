package request // import "pagemark/http/request"

import (
	"net/http"

	"pagemark/model"
)

type ContextKey int

const (
	ClientIPContextKey ContextKey = iota
	UserIDContextKey
	UserNameContextKey
	UserRolesContextKey
	DeviceIDContextKey
)

func getContextStringValue(r *http.Request, key ContextKey) string {
	if v := r.Context().Value(key); v != nil {
		if value, valid := v.(string); valid {
			return value
		}
	}
	return ""
}

// ClientIP returns the client IP address stored in the context.
func ClientIP(r *http.Request) string {
	return getContextStringValue(r, ClientIPContextKey)
}

func GetUserID(r *http.Request) int32 {
	if v := r.Context().Value(UserIDContextKey); v != nil {
		if value, valid := v.(int32); valid {
			return value
		}
	}
	return 0
}

func GetUsername(r *http.Request) string {
	return getContextStringValue(r, UserNameContextKey)
}

func GetUserRole(r *http.Request) model.Role {
	if v := r.Context().Value(UserRolesContextKey); v != nil {
		if value, valid := v.(model.Role); valid {
			return value
		}
	}
	return model.RoleUser
}

// GetDeviceID returns the device id the caller identified itself with, or ""
// when the request carried no X-Device-ID header.
func GetDeviceID(r *http.Request) string {
	return getContextStringValue(r, DeviceIDContextKey)
}
