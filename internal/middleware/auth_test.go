package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/2beens/edgetrack/internal/auth"
	"github.com/2beens/edgetrack/internal/middleware"
)

func TestAuthMiddlewareHandler_AuthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockChecker := NewMocktokenChecker(ctrl)
	authMiddleware := middleware.NewAuthMiddlewareHandler(mockChecker)

	testCases := []struct {
		name               string
		path               string
		method             string
		token              string
		userID             string
		mockAllowed        bool
		mockErr            error
		expectCheck        bool
		expectedStatusCode int
		expectedUserID     string
	}{
		{
			name:               "AllowedPathWithoutToken",
			path:               "/version",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Options",
			path:               "/timer/start",
			method:             "OPTIONS",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "MissingToken",
			path:               "/timer/start",
			method:             "POST",
			userID:             "user-1",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "ValidToken",
			path:               "/timer/start",
			method:             "POST",
			token:              "valid-token",
			userID:             "user-1",
			mockAllowed:        true,
			expectCheck:        true,
			expectedStatusCode: http.StatusOK,
			expectedUserID:     "user-1",
		},
		{
			name:               "ValidTokenNoUser",
			path:               "/analytics",
			method:             "GET",
			token:              "valid-token",
			mockAllowed:        true,
			expectCheck:        true,
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "InvalidToken",
			path:               "/analytics",
			method:             "GET",
			token:              "invalid-token",
			userID:             "user-1",
			mockAllowed:        false,
			expectCheck:        true,
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "CheckerError",
			path:               "/analytics",
			method:             "GET",
			token:              "valid-token",
			userID:             "user-1",
			mockErr:            errors.New("checker down"),
			expectCheck:        true,
			expectedStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set(middleware.HeaderToken, tc.token)
			}
			if tc.userID != "" {
				req.Header.Set(middleware.HeaderUserID, tc.userID)
			}

			if tc.expectCheck {
				mockChecker.EXPECT().
					IsAllowed(gomock.Any(), tc.token).
					Return(tc.mockAllowed, tc.mockErr)
			}

			var gotUserID string
			rr := httptest.NewRecorder()
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, _ = auth.UserIDFromContext(r.Context())
			})
			authMiddleware.AuthCheck()(handler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			assert.Equal(t, tc.expectedUserID, gotUserID)
		})
	}
}
