package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/requestdata"
	"github.com/synthsense/synthsense-backend/internal/types"
)

type stubAuthService struct {
	validToken string
	userID     uuid.UUID
}

func (s *stubAuthService) RegisterUser(ctx context.Context, user *types.User) (string, string, error) {
	return "", "", fmt.Errorf("not implemented")
}

func (s *stubAuthService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	return "", "", fmt.Errorf("not implemented")
}

func (s *stubAuthService) RefreshUser(ctx context.Context) (string, string, error) {
	return "", "", fmt.Errorf("not implemented")
}

func (s *stubAuthService) LogoutUser(ctx context.Context) error { return nil }

func (s *stubAuthService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString != s.validToken {
		return ctx, fmt.Errorf("invalid token")
	}
	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      s.userID,
	}), nil
}

func (s *stubAuthService) GetAccessTTL() time.Duration { return time.Hour }

func newAuthTestRouter(t *testing.T, svc *stubAuthService) (*gin.Engine, *uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	var seenUserID uuid.UUID
	router := gin.New()
	router.GET("/protected", NewAuthMiddleware(log, svc).RequireAuth(), func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd != nil {
			seenUserID = rd.UserID
		}
		c.Status(http.StatusOK)
	})
	return router, &seenUserID
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	svc := &stubAuthService{validToken: "good-token", userID: userID}

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantUser   bool
	}{
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "bearer token", header: "Bearer good-token", wantStatus: http.StatusOK, wantUser: true},
		{name: "case insensitive scheme", header: "bearer good-token", wantStatus: http.StatusOK, wantUser: true},
		{name: "invalid bearer token", header: "Bearer bad-token", wantStatus: http.StatusUnauthorized},
		{name: "query token", query: "?token=good-token", wantStatus: http.StatusOK, wantUser: true},
		{name: "invalid query token", query: "?token=bad-token", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, seenUserID := newAuthTestRouter(t, svc)
			req := httptest.NewRequest(http.MethodGet, "/protected"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantUser && *seenUserID != userID {
				t.Fatalf("handler saw user %s, want %s", *seenUserID, userID)
			}
		})
	}
}
