package turn

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signaling-relay/internal/domain"
	"signaling-relay/pkg/constants"
	"signaling-relay/pkg/logger"
	"signaling-relay/pkg/response"
)

// CredentialService vends ICE server lists
type CredentialService interface {
	GetCredentials(ctx context.Context, userID, preferred string) *domain.CredentialSet
	Fallback(userID string) *domain.CredentialSet
}

// Handler handles TURN credential HTTP requests
type Handler struct {
	credentials CredentialService
	now         func() time.Time
}

// NewHandler creates a new TURN credential handler
func NewHandler(credentials CredentialService) *Handler {
	return &Handler{
		credentials: credentials,
		now:         time.Now,
	}
}

// CredentialsRequest is the optional request body
type CredentialsRequest struct {
	UserID   string `json:"userId"`
	Provider string `json:"provider"`
}

// CredentialsResponse is returned on success
type CredentialsResponse struct {
	Success     bool                  `json:"success"`
	Credentials *domain.CredentialSet `json:"credentials"`
	ExpiresAt   string                `json:"expiresAt"`
}

// FailureResponse carries the STUN-only list when vending failed outright
type FailureResponse struct {
	Error    string                `json:"error"`
	Fallback *domain.CredentialSet `json:"fallback"`
}

// GetCredentials returns ICE servers for the caller
// POST /turn-credentials
func (h *Handler) GetCredentials(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ValidationError(c, "Invalid request body")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = c.GetString("user_id")
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = constants.DefaultPreferredProvider
	}

	creds := h.credentials.GetCredentials(c.Request.Context(), userID, provider)
	if creds == nil || len(creds.ICEServers) == 0 {
		logger.FromContext(c.Request.Context()).Error("Credential chain returned nothing",
			zap.String("user_id", userID),
			zap.String("provider", provider))
		c.JSON(http.StatusInternalServerError, FailureResponse{
			Error:    "Failed to get TURN credentials",
			Fallback: h.credentials.Fallback(userID),
		})
		return
	}

	c.JSON(http.StatusOK, CredentialsResponse{
		Success:     true,
		Credentials: creds,
		ExpiresAt:   h.now().Add(time.Duration(creds.TTL) * time.Second).UTC().Format(time.RFC3339Nano),
	})
}
