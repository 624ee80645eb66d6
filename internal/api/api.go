package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"sms-webhook/internal/config"
	"sms-webhook/internal/storage"
)

type API struct {
	Store  storage.Store
	Cfg    *config.Config
	Logger zerolog.Logger
}

func NewAPI(store storage.Store, cfg *config.Config, logger zerolog.Logger) *API {
	return &API{
		Store:  store,
		Cfg:    cfg,
		Logger: logger,
	}
}

// JSON sends a JSON response with the given status code.
func (a *API) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (a *API) Error(w http.ResponseWriter, status int, message string) {
	a.JSON(w, status, map[string]string{"error": message})
}
