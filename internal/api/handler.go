package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"stock-dashboard/internal/app"
	"stock-dashboard/internal/auth"
	"stock-dashboard/market"
	"stock-dashboard/models"
	"stock-dashboard/observability"
	"stock-dashboard/portfolio"
	"stock-dashboard/repository"
	"stock-dashboard/services"
	"stock-dashboard/templates"
	"stock-dashboard/templates/components"
	"stock-dashboard/templates/partials"
)

const (
	maxSymbolLength = 10
	maxSymbols      = 25
	maxBodyBytes    = 1 << 16
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.^-]+$`)

// Handler handles HTTP API requests
type Handler struct {
	app     *app.App
	display Display
	cookie  string
	secure  bool
	ttl     time.Duration
}

// NewHandler creates a new Handler
func NewHandler(application *app.App) *Handler {
	cfg := application.Config()
	return &Handler{
		app:     application,
		display: Display{Currency: application.Currency()},
		cookie:  cfg.Session.CookieName,
		secure:  cfg.Session.CookieSecure,
		ttl:     time.Duration(cfg.Session.TTLMinutes) * time.Minute,
	}
}

// HandleIndex serves the dashboard, or sends anonymous visitors to login
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessionUser(r); err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.htmlResponse(w, templates.Index(), r)
}

// HandleLoginPage serves the sign-in form
func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.htmlResponse(w, templates.Login(r.URL.Query().Get("error")), r)
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status, comps, breakers := h.app.Health(r.Context())
	h.jsonResponse(w, map[string]any{
		"status":           status,
		"provider":         h.app.Market().Provider(),
		"mirrors":          comps,
		"circuit_breakers": breakers,
	})
}

// Auth

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignup creates an account and starts a session for it
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeRequest(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.app.Auth().Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.authFailure(w, r, err)
		return
	}
	sess, err := h.app.Auth().Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.authFailure(w, r, err)
		return
	}
	h.setSessionCookie(w, sess)

	if isFormPost(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"status": "created", "user": user})
}

// HandleLogin verifies credentials and sets the session cookie
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeRequest(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.app.Auth().Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.authFailure(w, r, err)
		return
	}
	h.setSessionCookie(w, sess)

	if isFormPost(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.jsonResponse(w, map[string]any{
		"status":     "ok",
		"username":   sess.Username,
		"expires_at": sess.ExpiresAt,
	})
}

// HandleLogout ends the session. Logging out without a session succeeds.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookie); err == nil {
		if err := h.app.Auth().Logout(r.Context(), c.Value); err != nil {
			observability.WithContext(r.Context()).Warn("logout failed", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", "/login")
	}
	if isFormPost(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.jsonResponse(w, StatusResponse{Status: "logged_out"})
}

func (h *Handler) authFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrUserExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		observability.WithContext(r.Context()).Error("auth request failed", "error", err)
	}
	if isFormPost(r) {
		http.Redirect(w, r, "/login?error="+url.QueryEscape(authMessage(err)), http.StatusSeeOther)
		return
	}
	h.jsonError(w, authMessage(err), status)
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, repository.ErrUserExists):
		return "username already taken"
	case errors.Is(err, auth.ErrInvalidInput):
		return err.Error()
	default:
		return "authentication failed"
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sess auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) sessionUser(r *http.Request) (string, error) {
	c, err := r.Cookie(h.cookie)
	if err != nil {
		return "", auth.ErrSessionNotFound
	}
	return h.app.Auth().Authenticate(r.Context(), c.Value)
}

// Market

// HandleMarketPulse returns the home page sentiment overview
func (h *Handler) HandleMarketPulse(w http.ResponseWriter, r *http.Request) {
	p := h.app.Pulse().Current(r.Context())
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.MarketPulse(p, h.display.Currency), r)
		return
	}
	h.jsonResponse(w, h.display.pulse(p))
}

// HandleNews returns generated headlines for the biggest movers
func (h *Handler) HandleNews(w http.ResponseWriter, r *http.Request) {
	articles := h.app.Pulse().News(r.Context())
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.Articles(articles), r)
		return
	}
	h.jsonResponse(w, map[string]any{
		"articles":     articles,
		"last_updated": time.Now().Format("2006-01-02 15:04:05"),
	})
}

// HandleSentimentOverview returns the sample sentiment page
func (h *Handler) HandleSentimentOverview(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, market.SampleSentiment())
}

// Stocks

// HandleGetStock returns the latest quote. Unreachable data yields a
// degraded quote at the default price rather than an error.
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}
	q := h.app.Market().QuoteOrDefault(r.Context(), symbol)
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.Quotes([]*models.Quote{q}, h.display.Currency), r)
		return
	}
	h.jsonResponse(w, h.display.quote(q))
}

// HandleGetStocks returns quotes for ?symbols=A,B or the watchlist
func (h *Handler) HandleGetStocks(w http.ResponseWriter, r *http.Request) {
	symbols := h.app.Watchlist()
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		var err error
		symbols, err = ParseSymbols(raw)
		if err != nil {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	quotes := h.app.Market().Quotes(r.Context(), symbols)
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.Quotes(quotes, h.display.Currency), r)
		return
	}
	out := make([]quoteView, len(quotes))
	for i, q := range quotes {
		out[i] = h.display.quote(q)
	}
	h.jsonResponse(w, out)
}

// HandleGetChart returns bars, indicator lines and summary for ?period=
func (h *Handler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}
	snap := h.app.Market().Snapshot(r.Context(), symbol, r.URL.Query().Get("period"))
	h.jsonResponse(w, h.display.chart(snap))
}

// HandleGetIndicators returns the latest indicator values and their labels
func (h *Handler) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}
	snap := h.app.Market().Snapshot(r.Context(), symbol, r.URL.Query().Get("period"))
	view := h.display.indicatorsOf(snap)
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.IndicatorStatuses(symbol, view.Statuses), r)
		return
	}
	h.jsonResponse(w, view)
}

// HandleGetSignal returns the BUY/SELL/HOLD label over three months
func (h *Handler) HandleGetSignal(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}
	snap := h.app.Market().Snapshot(r.Context(), symbol, app.SignalPeriod)
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.Signal(snap, h.display.Currency), r)
		return
	}
	h.jsonResponse(w, h.display.signal(snap))
}

// HandleGetForecast returns the multi-day forecast
func (h *Handler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}
	snap := h.app.Market().Snapshot(r.Context(), symbol, app.ForecastPeriod)
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.Forecast(snap, h.display.Currency), r)
		return
	}
	h.jsonResponse(w, h.display.forecastOf(snap))
}

// HandleGetNextBar returns a randomized next-bar forecast with the signal
func (h *Handler) HandleGetNextBar(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}
	snap, price, ok := h.app.NextBar(r.Context(), symbol)
	h.jsonResponse(w, h.display.nextBar(snap, price, ok))
}

// HandleGetSentiment returns the sample sentiment for one symbol
func (h *Handler) HandleGetSentiment(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}
	s := market.SymbolSentiment(symbol)
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.Sentiment(s), r)
		return
	}
	h.jsonResponse(w, s)
}

// HandleWeeklyOutlook runs the screener over the watchlist
func (h *Handler) HandleWeeklyOutlook(w http.ResponseWriter, r *http.Request) {
	o := h.app.WeeklyOutlook(r.Context())
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.Outlook(o, h.display.Currency), r)
		return
	}
	h.jsonResponse(w, h.display.outlook(o))
}

// Portfolio and trades

// HoldingRequest adds shares bought elsewhere. Prices are in the display currency.
type HoldingRequest struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// TradeRequest is a buy or sell. A zero or missing price fills at the
// latest quote. Action is accepted as an alias of Side.
type TradeRequest struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Action   string          `json:"action"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// HandleGetPortfolio values the user's holdings
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFrom(r.Context())
	summary, err := h.app.Portfolio().Value(r.Context(), username)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.Portfolio(summary, h.display.Currency), r)
		return
	}
	h.jsonResponse(w, h.display.portfolioOf(summary))
}

// HandleAddHolding merges shares into the user's portfolio
func (h *Handler) HandleAddHolding(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFrom(r.Context())
	var req HoldingRequest
	if err := decodeRequest(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	symbol, err := NormalizeSymbol(req.Symbol)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	holding, err := h.app.Portfolio().Add(r.Context(), username, symbol, req.Quantity, h.display.fromDisplay(req.AvgPrice))
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	holding.AvgPrice = h.display.money(holding.AvgPrice)
	h.jsonResponse(w, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Successfully added %s to portfolio", symbol),
		"holding": holding,
	})
}

// HandleExecuteTrade buys or sells for the user
func (h *Handler) HandleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFrom(r.Context())
	var req TradeRequest
	if err := decodeRequest(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	symbol, err := NormalizeSymbol(req.Symbol)
	if err != nil {
		h.errorResponse(w, r, fmt.Errorf("%w: %v", portfolio.ErrInvalidSymbol, err))
		return
	}
	sideText := req.Side
	if sideText == "" {
		sideText = req.Action
	}
	side, ok := models.ParseTradeSide(strings.TrimSpace(sideText))
	if !ok {
		h.jsonError(w, "side must be buy or sell", http.StatusBadRequest)
		return
	}

	trade, err := h.app.Portfolio().ExecuteTrade(r.Context(), username, symbol, side, req.Quantity, h.display.fromDisplay(req.Price))
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.TradeConfirmation(trade, h.display.Currency), r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"message": fmt.Sprintf("Successfully %s %s shares of %s", pastTense(side), trade.Quantity, symbol),
		"trade":   h.display.trade(*trade),
	})
}

// HandleGetTrades returns the user's history, newest first
func (h *Handler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFrom(r.Context())
	trades, err := h.app.Portfolio().History(r.Context(), username)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	if limit := h.ParseLimitParam(r, 0); limit > 0 && limit < len(trades) {
		trades = trades[:limit]
	}
	if isHTMXRequest(r) {
		h.htmlResponse(w, partials.TradeHistory(trades, h.display.Currency), r)
		return
	}
	h.jsonResponse(w, h.display.trades(trades))
}

func pastTense(side models.TradeSide) string {
	if side == models.TradeSideSell {
		return "sold"
	}
	return "bought"
}

// Helper functions

// errorResponse maps domain errors to status codes
func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, portfolio.ErrInvalidQuantity),
		errors.Is(err, portfolio.ErrInvalidPrice),
		errors.Is(err, portfolio.ErrInvalidSymbol):
		status = http.StatusBadRequest
	case errors.Is(err, portfolio.ErrInsufficientShares),
		errors.Is(err, portfolio.ErrNotHeld):
		status = http.StatusConflict
	case errors.Is(err, repository.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNoData):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrCircuitOpen), errors.Is(err, services.ErrTooManyRequests):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		observability.WithContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}

	if isHTMXRequest(r) {
		h.htmlError(w, err.Error(), status, r)
		return
	}
	h.jsonError(w, err.Error(), status)
}

// isHTMXRequest checks if the request is from HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// isFormPost reports a plain browser form submission
func isFormPost(r *http.Request) bool {
	if isHTMXRequest(r) {
		return false
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

// decodeRequest reads a JSON body, or form values for form posts and HTMX
func decodeRequest(r *http.Request, dst any) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("invalid request body: %w", err)
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}
	return decodeForm(r, dst)
}

func decodeForm(r *http.Request, dst any) error {
	dec := func(key string) (decimal.Decimal, error) {
		v := strings.TrimSpace(r.PostFormValue(key))
		if v == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s: %q", key, v)
		}
		return d, nil
	}

	var err error
	switch req := dst.(type) {
	case *credentials:
		req.Username = r.PostFormValue("username")
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
	case *HoldingRequest:
		req.Symbol = r.PostFormValue("symbol")
		if req.Quantity, err = dec("quantity"); err != nil {
			return err
		}
		if req.AvgPrice, err = dec("avg_price"); err != nil {
			return err
		}
	case *TradeRequest:
		req.Symbol = r.PostFormValue("symbol")
		req.Side = r.PostFormValue("side")
		req.Action = r.PostFormValue("action")
		if req.Quantity, err = dec("quantity"); err != nil {
			return err
		}
		if req.Price, err = dec("price"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported form target %T", dst)
	}
	return nil
}

// htmlResponse renders a templ component as HTML
func (h *Handler) htmlResponse(w http.ResponseWriter, component templComponent, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		observability.WithContext(r.Context()).Error("render failed", "error", err)
	}
}

// templComponent matches the templ.Component interface
type templComponent interface {
	Render(ctx context.Context, w io.Writer) error
}

// htmlError renders an error state as HTML
func (h *Handler) htmlError(w http.ResponseWriter, message string, status int, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	components.ErrorState(message).Render(r.Context(), w)
}

// symbolParam validates the {symbol} URL parameter, writing 400 on failure
func (h *Handler) symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol, err := NormalizeSymbol(chi.URLParam(r, "symbol"))
	if err != nil {
		if isHTMXRequest(r) {
			h.htmlError(w, err.Error(), http.StatusBadRequest, r)
			return "", false
		}
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return symbol, true
}

// NormalizeSymbol upper-cases and validates a ticker symbol
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	if len(symbol) > maxSymbolLength {
		return "", fmt.Errorf("symbol too long (max %d characters)", maxSymbolLength)
	}
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("invalid symbol format (letters, digits, dots, carets and dashes only)")
	}
	return symbol, nil
}

// ParseSymbols splits a comma-separated list, dropping blanks and duplicates
func ParseSymbols(raw string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := NormalizeSymbol(part)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", strings.TrimSpace(part), err)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no symbols given")
	}
	if len(out) > maxSymbols {
		return nil, fmt.Errorf("too many symbols (max %d)", maxSymbols)
	}
	return out, nil
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	writeJSONError(w, message, status)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// StatusResponse represents a status response
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
