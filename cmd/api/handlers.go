package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cartflow/pkg/cart"
	"cartflow/pkg/catalog"
	"cartflow/pkg/checkout"
	"cartflow/pkg/logger"
	"cartflow/pkg/otel"
)

const sessionCookie = "session_id"

// checkoutFailedMessage is shown to shoppers; the order endpoint's reply is
// only logged.
const checkoutFailedMessage = "checkout failed, please try again"

type ctxKey int

const sessionKey ctxKey = iota

// server carries the dependencies shared by all handlers.
type server struct {
	log             *logger.Logger
	tracer          trace.Tracer
	sessions        *redis.Client
	sessionTTL      time.Duration
	carts           cart.Persister
	catalog         catalog.Repository
	submitter       checkout.OrderSubmitter
	checkoutTimeout time.Duration
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.traceMiddleware)
	r.HandleFunc("/login", s.loginHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/cart", s.lookupProductsHandler).Methods(http.MethodPost)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	api := r.NewRoute().Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/cart", s.getCartHandler).Methods(http.MethodGet)
	api.HandleFunc("/cart", s.clearCartHandler).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items/{id}", s.addItemHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}", s.removeItemHandler).Methods(http.MethodDelete)
	api.HandleFunc("/checkout", s.checkoutHandler).Methods(http.MethodPost)
	return r
}

// loginRequest represents login credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// cartView is the cart as returned to the UI.
type cartView struct {
	Items     []string    `json:"items"`
	Lines     []cart.Line `json:"lines"`
	Total     string      `json:"total"`
	Confirmed bool        `json:"confirmed,omitempty"`
}

type lookupRequest struct {
	IDs []string `json:"ids"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// loginHandler handles user login and session creation.
// @Summary Login
// @Description Authenticates user and sets session cookie
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200
// @Router /login [post]
func (s *server) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "loginHandler")
	defer span.End()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}
	sid := uuid.NewString()
	if err := s.sessions.Set(ctx, "session:"+sid, req.Username, s.sessionTTL).Err(); err != nil {
		s.log.Error(ctx, "create session", "error", err)
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sid, Path: "/", Expires: time.Now().Add(s.sessionTTL), HttpOnly: true})
	w.WriteHeader(http.StatusOK)
}

// authMiddleware ensures a valid session exists.
func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.sessions.Get(r.Context(), "session:"+c.Value).Result()
		if err != nil || user == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, c.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.InjectTracing(r.Context(), s.tracer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// openCart restores the cart of the request's session, writing the error
// response itself when that fails.
func (s *server) openCart(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	ctx := r.Context()
	session, _ := ctx.Value(sessionKey).(string)
	store, err := cart.Open(ctx, s.carts, session)
	if err != nil {
		s.log.Error(ctx, "open cart", "session", session, "error", err)
		writeError(w, http.StatusServiceUnavailable, "cart unavailable")
		return nil, false
	}
	return store, true
}

// view prices the cart. A failed catalog lookup is logged and the cart is
// shown with zero-price lines.
func (s *server) view(ctx context.Context, store *cart.Store) cartView {
	ctx, span := otel.AddSpan(ctx, "cart.quote")
	defer span.End()

	items := store.Snapshot()
	summary, err := cart.Quote(ctx, s.catalog, items)
	if err != nil {
		s.log.Warn(ctx, "catalog lookup", "session", store.Session(), "error", err)
	}
	return cartView{Items: items, Lines: summary.Lines, Total: summary.Total.String()}
}

// getCartHandler returns the priced cart.
// @Summary Get cart
// @Description Returns the session cart with priced lines. A URL carrying the payment confirmation marker clears the cart first.
// @Produce json
// @Success 200 {object} cartView
// @Security ApiKeyAuth
// @Router /cart [get]
func (s *server) getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getCartHandler")
	defer span.End()

	store, ok := s.openCart(w, r)
	if !ok {
		return
	}
	confirmed := checkout.IsConfirmation(r.URL)
	if confirmed {
		if err := store.Clear(ctx); err != nil {
			s.log.Error(ctx, "clear cart after payment", "session", store.Session(), "error", err)
			writeError(w, http.StatusServiceUnavailable, "cart unavailable")
			return
		}
		s.log.Info(ctx, "order confirmed, cart cleared", "session", store.Session())
	}
	v := s.view(ctx, store)
	v.Confirmed = confirmed
	writeJSON(w, http.StatusOK, v)
}

// addItemHandler adds one unit of a product.
// @Summary Add item
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} cartView
// @Security ApiKeyAuth
// @Router /cart/items/{id} [post]
func (s *server) addItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "addItemHandler")
	defer span.End()

	id := mux.Vars(r)["id"]
	store, ok := s.openCart(w, r)
	if !ok {
		return
	}
	if err := store.Add(ctx, id); err != nil {
		s.log.Error(ctx, "add item", "session", store.Session(), "product", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "cart unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.view(ctx, store))
}

// removeItemHandler removes one unit of a product.
// @Summary Remove item
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} cartView
// @Security ApiKeyAuth
// @Router /cart/items/{id} [delete]
func (s *server) removeItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "removeItemHandler")
	defer span.End()

	id := mux.Vars(r)["id"]
	store, ok := s.openCart(w, r)
	if !ok {
		return
	}
	if err := store.Remove(ctx, id); err != nil {
		s.log.Error(ctx, "remove item", "session", store.Session(), "product", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "cart unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.view(ctx, store))
}

// clearCartHandler empties the cart.
// @Summary Clear cart
// @Success 204
// @Security ApiKeyAuth
// @Router /cart [delete]
func (s *server) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "clearCartHandler")
	defer span.End()

	store, ok := s.openCart(w, r)
	if !ok {
		return
	}
	if err := store.Clear(ctx); err != nil {
		s.log.Error(ctx, "clear cart", "session", store.Session(), "error", err)
		writeError(w, http.StatusServiceUnavailable, "cart unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookupProductsHandler returns the catalog entries for a list of ids.
// @Summary Look up products
// @Description Unknown ids are omitted from the response.
// @Accept json
// @Produce json
// @Param ids body lookupRequest true "Product IDs"
// @Success 200 {array} catalog.Product
// @Router /api/cart [post]
func (s *server) lookupProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "lookupProductsHandler")
	defer span.End()

	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	products, err := s.catalog.Lookup(ctx, req.IDs)
	if err != nil {
		s.log.Error(ctx, "lookup products", "error", err)
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// checkoutHandler submits the cart and returns the payment redirect.
// @Summary Checkout
// @Description Sends the contact fields and cart to the order endpoint. The cart is kept until payment is confirmed.
// @Accept json
// @Produce json
// @Param contact body checkout.Contact true "Contact"
// @Success 200 {object} checkoutResponse
// @Failure 400 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Security ApiKeyAuth
// @Router /checkout [post]
func (s *server) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "checkoutHandler")
	defer span.End()

	var contact checkout.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	store, ok := s.openCart(w, r)
	if !ok {
		return
	}
	items := store.Snapshot()
	span.SetAttributes(attribute.Int("cart.units", len(items)))

	flow := checkout.NewFlow(s.submitter)
	if flow.Sync(items) != checkout.Reviewing {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.checkoutTimeout)
	defer cancel()
	redirect, err := flow.Submit(submitCtx, contact, items)
	if err != nil {
		s.log.Error(ctx, "checkout", "session", store.Session(), "state", flow.State().String(), "error", err)
		if errors.Is(err, checkout.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, checkoutFailedMessage)
		return
	}
	s.log.Info(ctx, "checkout redirect", "session", store.Session(), "units", len(items))
	writeJSON(w, http.StatusOK, checkoutResponse{URL: redirect})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
