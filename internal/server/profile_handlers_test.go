package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"rewire/internal/config"
	"rewire/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProfileRepository is a mock of the ProfileRepository interface
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *models.AddictionProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID uint) (*models.AddictionProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AddictionProfile), args.Error(1)
}

func newProfileTestApp(t *testing.T, mockRepo *MockProfileRepository) *fiber.App {
	t.Helper()
	s := &Server{
		config:      &config.Config{JWTSecret: "test_secret"},
		profileRepo: mockRepo,
	}
	app := fiber.New()
	// Stand in for AuthRequired
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	app.Post("/profile", s.UpsertProfile)
	app.Get("/profile", s.GetProfile)
	return app
}

func TestUpsertProfile(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(m *MockProfileRepository)
		expectedStatus int
	}{
		{
			name: "Create",
			body: map[string]string{
				"addiction_type": "nicotine",
				"severity":       "moderate",
				"triggers":       "stress, social events",
				"recovery_goals": "quit within 3 months",
			},
			mockSetup: func(m *MockProfileRepository) {
				m.On("Upsert", mock.Anything, mock.MatchedBy(func(p *models.AddictionProfile) bool {
					return p.UserID == 1 && p.AddictionType == "nicotine" && p.Severity == "moderate"
				})).Return(nil)
				m.On("GetByUserID", mock.Anything, uint(1)).Return(&models.AddictionProfile{
					ID: 5, UserID: 1, AddictionType: "nicotine", Severity: "moderate",
				}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Missing addiction type",
			body: map[string]string{
				"severity": "mild",
			},
			mockSetup:      func(m *MockProfileRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Invalid severity",
			body: map[string]string{
				"addiction_type": "nicotine",
				"severity":       "catastrophic",
			},
			mockSetup:      func(m *MockProfileRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProfileRepository)
			tt.mockSetup(mockRepo)
			app := newProfileTestApp(t, mockRepo)

			resp := postJSON(t, app, "/profile", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			_ = resp.Body.Close()
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestGetProfile(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mockRepo := new(MockProfileRepository)
		mockRepo.On("GetByUserID", mock.Anything, uint(1)).Return(&models.AddictionProfile{
			ID: 5, UserID: 1, AddictionType: "nicotine", Severity: "severe",
		}, nil)
		app := newProfileTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "nicotine", body["addiction_type"])
	})

	t.Run("Not found", func(t *testing.T) {
		mockRepo := new(MockProfileRepository)
		mockRepo.On("GetByUserID", mock.Anything, uint(1)).Return(nil, nil)
		app := newProfileTestApp(t, mockRepo)

		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, profileNotFoundMessage, body["error"])
	})
}
