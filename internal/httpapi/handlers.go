package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"ussd-gateway/internal/audit"
	"ussd-gateway/internal/auth"
	"ussd-gateway/internal/session"

	"github.com/gin-gonic/gin"
)

// Handlers groups the ops API handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
//
// Everything here is operator-facing; the subscriber path is the
// gateway webhook, not this package.

type Handlers struct {
	Auth     *auth.Manager
	Sessions session.Store
	Audit    audit.Reader
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues an operator access token.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	tok, err := h.Auth.Issue(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok})
}

// --- Sessions ---

type sessionView struct {
	PhoneNumber      string    `json:"phone_number"`
	CarrierSessionID string    `json:"carrier_session_id"`
	NodeKey          string    `json:"node_key"`
	Path             []string  `json:"path"`
	TokensSeen       int       `json:"tokens_seen"`
	Rejected         int       `json:"rejected"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	LastActiveAt     time.Time `json:"last_active_at"`
}

func toView(s session.Session) sessionView {
	return sessionView{
		PhoneNumber:      s.PhoneNumber,
		CarrierSessionID: s.CarrierSessionID,
		NodeKey:          s.NodeKey,
		Path:             s.Path,
		TokensSeen:       s.TokensSeen,
		Rejected:         s.Rejected,
		Status:           string(s.Status),
		CreatedAt:        s.CreatedAt,
		LastActiveAt:     s.LastActiveAt,
	}
}

// ListSessions returns every live session. Answer values are withheld:
// they can carry subscriber locations and references.
func (h Handlers) ListSessions(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session store not configured"})
		return
	}
	sessions, err := h.Sessions.List(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session listing failed"})
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, toView(s))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].PhoneNumber < views[j].PhoneNumber })
	c.JSON(http.StatusOK, gin.H{"sessions": views, "count": len(views)})
}

func (h Handlers) GetSession(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session store not configured"})
		return
	}
	phone := c.Param("phone")
	if phone == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phone required"})
		return
	}
	s, err := h.Sessions.Get(c.Request.Context(), phone)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no live session for this number"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
		return
	}
	c.JSON(http.StatusOK, toView(s))
}

// --- Audit ---

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditTail returns the most recent session lifecycle events.
func (h Handlers) AuditTail(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit reader not configured"})
		return
	}
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	events, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
