package v1

import (
	"net/http"
	"os"

	"pagemark/log"
	"pagemark/middleware"
	"pagemark/store"
	"pagemark/worker"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	store    *store.Store
	syncPool worker.WorkPool
	router   *mux.Router
}

func Server(router *mux.Router, store *store.Store, pools ...worker.WorkPool) {
	handler := &Handler{
		store:    store,
		syncPool: pools[0],
		router:   router,
	}

	sr := router.PathPrefix("/api/v1").Subrouter()
	middleware := middleware.NewMiddleware(handler.store)
	sr.Use(middleware.HandleCORS)
	sr.Use(middleware.LoggingRequest)

	sSetting, err := store.GetOrUpsetSystemSecuritySetting()
	if err != nil {
		log.Logger.Error("Error getting security setting", zap.Error(err))
		os.Exit(1)
	}
	jwtSecret := sSetting.JWTSecret
	// Add authentication middleware
	sr.Use(NewAuthInterceptor(store, jwtSecret).AuthenticationInterceptor)
	sr.Methods(http.MethodOptions)

	sr.HandleFunc("/signup", handler.signUp).Methods(http.MethodPost)
	sr.HandleFunc("/signin", handler.signIn).Methods(http.MethodPost)
	sr.HandleFunc("/device", handler.registerDevice).Methods(http.MethodPost)
	sr.HandleFunc("/devices", handler.listDevices).Methods(http.MethodGet)
	sr.HandleFunc("/progress/{bookID}", handler.getProgress).Methods(http.MethodGet)
	sr.HandleFunc("/progress/{bookID}/location", handler.updateLocation).Methods(http.MethodPost)
	sr.HandleFunc("/progress/{bookID}/session", handler.updateReadingSession).Methods(http.MethodPost)
	sr.HandleFunc("/sync/push", handler.syncPush).Methods(http.MethodPost)
	sr.HandleFunc("/sync/pull", handler.syncPull).Methods(http.MethodGet)
	// Schema migration is destructive for legacy rows, admin only.
	sr.HandleFunc("/admin/migrate", handler.migrateHistory).Methods(http.MethodPost)
}
