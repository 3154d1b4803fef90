package web

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"wtq-task-mining/internal/core"
	"wtq-task-mining/internal/i18n"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

const sessionName = "wtq-session"
const sessionUserIDKey = "user_id"
const sessionLocaleKey = "locale"

// Server represents the HTTP server
type Server struct {
	service       *core.Service
	sessionStore  *sessions.CookieStore
	translator    *i18n.Translator
	limiter       *visitorLimiter
	depositWallet string
}

// NewServer creates a new Server instance
func NewServer(service *core.Service, sessionSecret string) (*Server, error) {
	store := sessions.NewCookieStore([]byte(sessionSecret))

	// Detect if running behind HTTPS by checking PUBLIC_URL environment variable
	publicURL := getEnv("PUBLIC_URL", "http://localhost:8080")
	isHTTPS := strings.HasPrefix(publicURL, "https")

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isHTTPS,
		SameSite: http.SameSiteLaxMode,
	}

	if isHTTPS {
		log.Info("🔒 Running behind HTTPS - Secure cookie flag enabled")
	} else {
		log.Info("🔓 Running on HTTP - Secure cookie flag disabled (local dev)")
	}

	translator, err := i18n.NewTranslator("locales", "en")
	if err != nil {
		log.Warnf("⚠️ Failed to load locales: %v", err)
		translator = i18n.NewFallback("en")
	}

	return &Server{
		service:       service,
		sessionStore:  store,
		translator:    translator,
		limiter:       newVisitorLimiter(),
		depositWallet: os.Getenv("DEPOSIT_WALLET"),
	}, nil
}

// Translator exposes the i18n translator (useful for other services like the bot).
func (s *Server) Translator() *i18n.Translator {
	return s.translator
}

// Router creates and configures the HTTP router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.limiter.middleware)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", s.handleSignUp)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/levels", s.handleLevels)
		r.Get("/locale", s.handleSetLocale)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/profile", s.handleProfile)
			r.Get("/tasks/today", s.handleTodayStatus)
			r.Post("/tasks/complete", s.handleCompleteTask)
			r.Get("/team", s.handleTeam)
			r.Get("/vip/eligibility", s.handleVipEligibility)
			r.Post("/vip/claim", s.handleClaimVip)
			r.Get("/deposits/info", s.handleDepositInfo)
			r.Post("/deposits", s.handleRequestDeposit)
			r.Post("/withdrawals", s.handleRequestWithdrawal)
			r.Get("/transactions", s.handleTransactions)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.requireAdmin)
			r.Get("/admin/transactions", s.handlePendingTransactions)
			r.Post("/admin/transactions/{transactionID}/approve", s.handleApproveTransaction)
			r.Post("/admin/transactions/{transactionID}/reject", s.handleRejectTransaction)
			r.Get("/admin/users", s.handleListUsers)
		})
	})

	return r
}

// detectLocale picks locale from session then Accept-Language with fallback to default.
func (s *Server) detectLocale(r *http.Request) string {
	if session, err := s.sessionStore.Get(r, sessionName); err == nil {
		if l, ok := session.Values[sessionLocaleKey].(string); ok && l != "" {
			return l
		}
	}
	al := r.Header.Get("Accept-Language")
	if strings.HasPrefix(strings.ToLower(al), "hu") {
		return "hu"
	}
	return "en"
}

// handleSetLocale stores locale in session.
func (s *Server) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if !s.translator.Has(lang) {
		lang = "en"
	}
	if err := s.setLocale(w, r, lang); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to save locale")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"locale": lang})
}

// getUserID retrieves the user ID from the session
func (s *Server) getUserID(r *http.Request) (int64, bool) {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return 0, false
	}

	userID, ok := session.Values[sessionUserIDKey].(int64)
	if !ok {
		return 0, false
	}
	return userID, true
}

// setUserID sets the user ID in the session
func (s *Server) setUserID(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}

	session.Values[sessionUserIDKey] = userID
	return session.Save(r, w)
}

// setLocale sets the preferred locale in session.
func (s *Server) setLocale(w http.ResponseWriter, r *http.Request, locale string) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}
	session.Values[sessionLocaleKey] = locale
	return session.Save(r, w)
}

// clearSession clears the session
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return err
	}

	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// requireAuth is middleware that ensures the user is authenticated
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.getUserID(r); !ok {
			s.writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin is middleware that ensures the user holds the admin role.
// Any failure to verify the role denies access.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.getUserID(r)
		if !ok {
			s.writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		isAdmin, err := s.service.IsAdmin(userID)
		if err != nil || !isAdmin {
			log.WithFields(log.Fields{"user_id": userID, "path": r.URL.Path}).Warn("🚫 Admin access denied")
			s.writeError(w, r, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response with the given status code
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError writes a JSON error response, translating the message when a
// locale string exists for it
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	locale := s.detectLocale(r)
	s.writeJSON(w, status, map[string]string{
		"error": s.translator.T(locale, message),
	})
}
