package endpoints

import (
	"devconnect-backend/internal/database"
	"devconnect-backend/internal/env"
	internaljwt "devconnect-backend/internal/jwt"
	"devconnect-backend/internal/model"
	"devconnect-backend/internal/signaling"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type SignalingEndpoints interface {
	Websocket(http.ResponseWriter, *http.Request) error
	ConnectToken(http.ResponseWriter, *http.Request) error
}

type signalingEndpoints struct {
	handler *signaling.Handler
	db      *database.Database
	secret  []byte
}

func NewSignalingEndpoints(handler *signaling.Handler, db *database.Database) SignalingEndpoints {
	return &signalingEndpoints{
		handler: handler,
		db:      db,
		secret:  []byte(env.MustGet(env.UserSecretKey)),
	}
}

// Websocket hands the request off to the signaling upgrader. The upgrader
// writes its own error responses, so there is nothing to surface here.
func (h *signalingEndpoints) Websocket(w http.ResponseWriter, r *http.Request) error {
	h.handler.ServeWS(w, r)
	return nil
}

type connectTokenRequest struct {
	UserID string `json:"userId"`
}

type connectTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (h *signalingEndpoints) ConnectToken(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleConnectToken,
	})
}

// handleConnectToken mints the short-lived token a client presents on the
// websocket query string. The user record must already exist.
func (h *signalingEndpoints) handleConnectToken(w http.ResponseWriter, r *http.Request) error {
	var req connectTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request body.",
			ErrorLog:   fmt.Errorf("decode connect token request: %v", err),
		}
	}

	var user model.UserItem
	err := h.db.Client.GetItem(
		r.Context(),
		model.UsersTable,
		map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: req.UserID},
		},
		&user,
	)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "User not found.",
			ErrorLog:   fmt.Errorf("connect token for %s: %w", req.UserID, err),
		}
	}

	expiresAt := time.Now().Add(time.Hour).Unix()
	token, err := internaljwt.CreateUserToken(user.UserID, h.secret, expiresAt)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to create token.",
			ErrorLog:   fmt.Errorf("sign connect token for %s: %w", req.UserID, err),
		}
	}

	return WriteJSON(w, http.StatusOK, connectTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
