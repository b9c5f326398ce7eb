package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hutbite/hutbite-backend/internal/config"
	"github.com/hutbite/hutbite-backend/pkg/address"
	"github.com/hutbite/hutbite-backend/pkg/deliverability"
	"github.com/hutbite/hutbite-backend/pkg/geo"
	"github.com/hutbite/hutbite-backend/pkg/hubrise"
	"github.com/hutbite/hutbite-backend/pkg/sms"
	"github.com/hutbite/hutbite-backend/pkg/store"
	"github.com/hutbite/hutbite-backend/pkg/ultimago"
	"github.com/hutbite/hutbite-backend/pkg/upstream"
)

// server bundles the handlers' dependencies. hubrise and connections may
// be nil when the corresponding upstream is not configured; their routes
// then answer 503.
type server struct {
	cfg         *config.Config
	engine      *deliverability.Engine
	smsService  *sms.Service
	hubrise     *hubrise.Client
	ultimago    *ultimago.Client
	address     *address.Service
	connections *store.Store
	validate    *validator.Validate
	logger      zerolog.Logger
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/deliverability/check", s.handleDeliverabilityCheck)

	r.Post("/sms/send", s.handleSMSSend)
	r.Post("/sms/order-notification", s.handleSMSOrderNotification)

	r.Route("/orders", func(r chi.Router) {
		r.Use(s.requireHubRise)
		r.Post("/", s.handleCreateOrder)
		r.Get("/", s.handleListOrders)
		r.Get("/{orderID}", s.handleRetrieveOrder)
		r.Patch("/{orderID}", s.handleUpdateOrder)
		r.Post("/{orderID}/delivery-quotes", s.handleCreateDeliveryQuote)
		r.Post("/{orderID}/delivery-quotes/{quoteID}/accept", s.handleAcceptDeliveryQuote)
		r.Post("/{orderID}/delivery", s.handleCreateDelivery)
		r.Get("/{orderID}/delivery", s.handleRetrieveDelivery)
		r.Patch("/{orderID}/delivery", s.handleUpdateDelivery)
	})

	r.With(s.requireHubRise).Get("/catalog", s.handleGetCatalog)
	r.With(s.requireHubRise).Get("/location", s.handleGetLocation)

	r.Get("/ultimago/store-profile", s.handleStoreProfile)
	r.Get("/tables/sections", s.handleTableSections)
	r.Get("/address/suggest", s.handleAddressSuggest)

	r.Route("/connections", func(r chi.Router) {
		r.Get("/", s.handleListConnections)
		r.Put("/{slug}", s.handleSaveConnection)
		r.Get("/{slug}", s.handleGetConnection)
		r.Delete("/{slug}", s.handleDeleteConnection)
	})

	return r
}

// requestID attaches a short correlation id to the response headers and
// to the request-scoped logger.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()[:8]
		w.Header().Set("X-Request-ID", id)

		logger := s.logger.With().Str("request_id", id).Logger()
		logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("Request received")

		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

// requireHubRise answers 503 until HubRise credentials are configured.
func (s *server) requireHubRise(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.hubrise == nil {
			s.writeError(w, http.StatusServiceUnavailable, "HubRise credentials not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type restaurantPayload struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

type checkRequest struct {
	Restaurant       *restaurantPayload `json:"restaurant" validate:"required"`
	CustomerPostcode string             `json:"customer_postcode" validate:"required"`
	RadiusMiles      *float64           `json:"radius_miles" validate:"omitempty,gte=0.1,lte=50"`
}

// handleDeliverabilityCheck validates the request shape before the engine
// runs: malformed coordinates or an out-of-range radius are client errors
// and never reach the pipeline.
func (s *server) handleDeliverabilityCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	radius := 0.0
	if req.RadiusMiles != nil {
		radius = *req.RadiusMiles
	}

	restaurant := geo.Coordinates{Lat: req.Restaurant.Lat, Lon: req.Restaurant.Lon}
	decision, err := s.engine.Check(r.Context(), restaurant, req.CustomerPostcode, radius)
	if err != nil {
		// The engine re-checks coordinate ranges defensively; reaching
		// this branch means operator misconfiguration, not user input.
		s.writeError(w, http.StatusInternalServerError, "invalid restaurant coordinates")
		return
	}

	s.writeJSON(w, http.StatusOK, decision)
}

type smsSendRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Message     string `json:"message" validate:"required"`
}

func (s *server) handleSMSSend(w http.ResponseWriter, r *http.Request) {
	var req smsSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.smsService.SendCustom(r.Context(), req.PhoneNumber, req.Message)
	s.writeJSON(w, http.StatusOK, result)
}

type smsOrderNotificationRequest struct {
	RestaurantName string `json:"restaurant_name" validate:"required"`
	CustomerName   string `json:"customer_name" validate:"required"`
	CustomerPhone  string `json:"customer_phone" validate:"required"`
	OrderAmount    string `json:"order_amount" validate:"required"`
	OrderRef       string `json:"order_ref"`
}

func (s *server) handleSMSOrderNotification(w http.ResponseWriter, r *http.Request) {
	var req smsOrderNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.smsService.SendOrderNotification(r.Context(),
		req.RestaurantName, req.CustomerName, req.CustomerPhone, req.OrderAmount, req.OrderRef)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var order hubrise.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.hubrise.CreateOrder(r.Context(), s.cfg.HubRiseLocationID, order)
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	params := url.Values{}
	for _, name := range []string{"status", "private_ref", "customer_id"} {
		if v := r.URL.Query().Get(name); v != "" {
			params.Set(name, v)
		}
	}

	orders, err := s.hubrise.ListOrders(r.Context(), s.cfg.HubRiseLocationID, "", params)
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeJSON(w, http.StatusOK, orders)
}

func (s *server) handleRetrieveOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.hubrise.RetrieveOrder(r.Context(), s.cfg.HubRiseLocationID, chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

func (s *server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var patch hubrise.Order
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.hubrise.UpdateOrder(r.Context(), s.cfg.HubRiseLocationID, chi.URLParam(r, "orderID"), patch)
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleCreateDeliveryQuote(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	quote, err := s.hubrise.CreateDeliveryQuote(r.Context(), s.cfg.HubRiseLocationID, chi.URLParam(r, "orderID"), body)
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeRaw(w, http.StatusCreated, quote)
}

func (s *server) handleAcceptDeliveryQuote(w http.ResponseWriter, r *http.Request) {
	accepted, err := s.hubrise.AcceptDeliveryQuote(r.Context(), s.cfg.HubRiseLocationID,
		chi.URLParam(r, "orderID"), chi.URLParam(r, "quoteID"))
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeRaw(w, http.StatusOK, accepted)
}

func (s *server) handleCreateDelivery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	delivery, err := s.hubrise.CreateDelivery(r.Context(), s.cfg.HubRiseLocationID, chi.URLParam(r, "orderID"), body)
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeRaw(w, http.StatusCreated, delivery)
}

func (s *server) handleRetrieveDelivery(w http.ResponseWriter, r *http.Request) {
	delivery, err := s.hubrise.RetrieveDelivery(r.Context(), s.cfg.HubRiseLocationID, chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeRaw(w, http.StatusOK, delivery)
}

func (s *server) handleUpdateDelivery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	delivery, err := s.hubrise.UpdateDelivery(r.Context(), s.cfg.HubRiseLocationID, chi.URLParam(r, "orderID"), body)
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeRaw(w, http.StatusOK, delivery)
}

func (s *server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.hubrise.GetCatalog(r.Context(), s.cfg.HubRiseCatalogID)
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeRaw(w, http.StatusOK, catalog)
}

func (s *server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	location, err := s.hubrise.GetLocation(r.Context(), s.cfg.HubRiseLocationID)
	if err != nil {
		s.writeUpstreamError(w, err, "HubRise API error")
		return
	}
	s.writeRaw(w, http.StatusOK, location)
}

func (s *server) handleStoreProfile(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("store_id")
	if storeID == "" {
		s.writeError(w, http.StatusBadRequest, "store_id is required")
		return
	}

	profile, err := s.ultimago.GetStoreProfile(r.Context(), storeID)
	if err != nil {
		s.writeUltimagoError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *server) handleTableSections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	storeID := q.Get("store_id")
	menuSrv := q.Get("menu_srv")
	databaseName := q.Get("database_name")
	if storeID == "" || menuSrv == "" || databaseName == "" {
		s.writeError(w, http.StatusBadRequest, "store_id, menu_srv and database_name are required")
		return
	}

	sections, err := s.ultimago.GetSections(r.Context(), menuSrv, storeID, databaseName)
	if err != nil {
		s.writeUltimagoError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sections)
}

func (s *server) handleAddressSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	if len(query) < 2 {
		s.writeError(w, http.StatusBadRequest, "query must be at least 2 characters")
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	suggestions, err := s.address.Suggest(r.Context(), query, q.Get("country"), limit)
	if err != nil {
		if errors.Is(err, address.ErrNotConfigured) {
			s.writeError(w, http.StatusServiceUnavailable, "Addressy API key not configured")
			return
		}
		s.logger.Warn().Err(err).Msg("Address suggestion failed")
		s.writeError(w, http.StatusBadGateway, "address provider error")
		return
	}
	s.writeJSON(w, http.StatusOK, suggestions)
}

// writeUltimagoError maps POS failures: missing credentials to 503,
// undecodable payloads to 502, upstream statuses to the shared envelope.
func (s *server) writeUltimagoError(w http.ResponseWriter, err error) {
	if errors.Is(err, ultimago.ErrNotConfigured) {
		s.writeError(w, http.StatusServiceUnavailable, "Ultimago credentials not configured")
		return
	}
	if errors.Is(err, ultimago.ErrMalformedPayload) {
		s.writeError(w, http.StatusBadGateway, "failed to decode POS response")
		return
	}
	s.writeUpstreamError(w, err, "Ultimago API error")
}

type connectionPayload struct {
	AccessToken  string          `json:"access_token" validate:"required"`
	AccountID    string          `json:"account_id" validate:"required"`
	LocationID   string          `json:"location_id" validate:"required"`
	CatalogID    string          `json:"catalog_id"`
	AccountName  string          `json:"account_name"`
	LocationName string          `json:"location_name"`
	CatalogName  string          `json:"catalog_name"`
	RawPayload   json.RawMessage `json:"raw_payload"`
}

func (s *server) handleSaveConnection(w http.ResponseWriter, r *http.Request) {
	if s.connections == nil {
		s.writeError(w, http.StatusServiceUnavailable, "connection store not configured")
		return
	}

	var payload connectionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn := store.Connection{
		Slug:         chi.URLParam(r, "slug"),
		AccessToken:  payload.AccessToken,
		AccountID:    payload.AccountID,
		LocationID:   payload.LocationID,
		CatalogID:    payload.CatalogID,
		AccountName:  payload.AccountName,
		LocationName: payload.LocationName,
		CatalogName:  payload.CatalogName,
		RawPayload:   payload.RawPayload,
	}
	if err := s.connections.Save(r.Context(), conn); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("slug", conn.Slug).Msg("Failed to save connection")
		s.writeError(w, http.StatusInternalServerError, "failed to save connection")
		return
	}

	saved, err := s.connections.Get(r.Context(), conn.Slug)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load saved connection")
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	if s.connections == nil {
		s.writeError(w, http.StatusServiceUnavailable, "connection store not configured")
		return
	}

	conn, err := s.connections.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "connection not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load connection")
		return
	}
	s.writeJSON(w, http.StatusOK, conn)
}

func (s *server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	if s.connections == nil {
		s.writeError(w, http.StatusServiceUnavailable, "connection store not configured")
		return
	}

	conns, err := s.connections.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list connections")
		return
	}
	s.writeJSON(w, http.StatusOK, conns)
}

func (s *server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	if s.connections == nil {
		s.writeError(w, http.StatusServiceUnavailable, "connection store not configured")
		return
	}

	if err := s.connections.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to delete connection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeUpstreamError maps an upstream failure to an error envelope: the
// upstream status and body are surfaced when present, a transport
// failure maps to 502.
func (s *server) writeUpstreamError(w http.ResponseWriter, err error, message string) {
	var ue *upstream.UpstreamError
	if errors.As(err, &ue) && ue.StatusCode != 0 {
		var detail json.RawMessage
		if json.Valid(ue.Body) {
			detail = ue.Body
		} else {
			detail, _ = json.Marshal(string(ue.Body))
		}
		s.writeJSON(w, ue.StatusCode, map[string]any{
			"message": message,
			"detail":  detail,
		})
		return
	}

	s.logger.Error().Err(err).Msg("Upstream call failed")
	s.writeError(w, http.StatusBadGateway, "upstream request failed")
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *server) writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
