package request // import "pagemark/http/request"

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// RouteStringParam returns an URL route parameter as string.
func RouteStringParam(r *http.Request, param string) string {
	vars := mux.Vars(r)
	return vars[param]
}

// QueryInt64Param returns an URL query parameter as int64, or the default
// value when the parameter is missing or malformed.
func QueryInt64Param(r *http.Request, param string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(r.URL.Query().Get(param), 10, 64)
	if err != nil {
		return defaultValue
	}

	if value < 0 {
		return defaultValue
	}

	return value
}
