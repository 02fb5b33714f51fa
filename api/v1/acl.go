package v1

import (
	"context"
	"net/http"
	"strings"

	"pagemark/api/auth"
	"pagemark/http/request"
	"pagemark/http/response"
	"pagemark/log"
	"pagemark/model"
	"pagemark/store"
	"pagemark/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type AuthInterceptor struct {
	store  *store.Store
	secret string
}

func NewAuthInterceptor(store *store.Store, secret string) *AuthInterceptor {
	return &AuthInterceptor{store: store, secret: secret}
}

func (m *AuthInterceptor) AuthenticationInterceptor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isUnauthorizeAllowed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		clientIP := request.FindClientIP(r)
		accesstoken := getAccessToken(r)

		user, err := m.authenticate(accesstoken)
		if err != nil {
			log.Debug("Failed to authenticate user",
				zap.String("client_ip", clientIP),
				zap.String("user_agent", r.UserAgent()),
				zap.Error(err),
			)
			response.Unauthorized(w, r)
			return
		}
		if isOnlyForAdminAllowedPath(r.URL.Path) && user.Role != model.RoleAdmin {
			response.Forbidden(w, r)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, request.UserIDContextKey, user.ID)
		ctx = context.WithValue(ctx, request.UserNameContextKey, user.Username)
		ctx = context.WithValue(ctx, request.UserRolesContextKey, user.Role)

		// The calling installation identifies itself per request. Handlers
		// that need a registered device verify ownership themselves.
		if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
			ctx = context.WithValue(ctx, request.DeviceIDContextKey, deviceID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthInterceptor) authenticate(accessToken string) (*model.User, error) {
	if accessToken == "" {
		return nil, errors.New("no access token provided")
	}
	claims := &auth.ClaimsMessage{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Name {
			return nil, errors.New("unexpected signing method")
		}
		if kid, ok := t.Header["kid"].(string); !ok || kid != auth.KeyID {
			return nil, errors.New("unexpected key id")
		}
		return []byte(m.secret), nil
	})
	if err != nil {
		return nil, errors.New("Invalid or expired access token")
	}

	userID, err := util.ConvertStringToInt32(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "malformed ID in the token")
	}
	user, err := m.store.GetUser(&model.FindUser{ID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	if user == nil {
		return nil, errors.Errorf("user not found with ID: %d", userID)
	}
	if user.RowStatus == model.RowStatusArchived {
		return nil, errors.Errorf("user is archived with ID: %d", userID)
	}

	return user, nil
}

func getAccessToken(r *http.Request) string {
	// Check the HTTP Authorization header first
	authorizationHeaders := r.Header.Get("Authorization")
	// Check bearer token
	if authorizationHeaders != "" {
		splitToken := strings.Split(authorizationHeaders, "Bearer ")
		if len(splitToken) == 2 {
			return splitToken[1]
		}
	}

	// Check the cookie header
	var accessToken string
	for cookie := range r.Cookies() {
		if r.Cookies()[cookie].Name == auth.AccessTokenCookieName {
			accessToken = r.Cookies()[cookie].Value
		}
	}
	return accessToken
}

// deviceFromRequest resolves the caller's device id header to a registered
// device owned by the authenticated user.
func (h *Handler) deviceFromRequest(r *http.Request) (*model.Device, error) {
	deviceID := request.GetDeviceID(r)
	if deviceID == "" {
		return nil, errors.New("missing X-Device-ID header")
	}
	device, err := h.store.GetDevice(&model.FindDevice{ID: &deviceID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get device")
	}
	if device == nil {
		return nil, errors.Errorf("device not registered: %s", deviceID)
	}
	if device.UserID != request.GetUserID(r) {
		return nil, errors.New("device belongs to another user")
	}
	return device, nil
}
