package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaravmahajanofficial/sellit-backend/internal/config"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHealth(t *testing.T, pingErr error, redisErr error) http.Handler {
	t.Helper()

	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ping := dbMock.ExpectPing()
	if pingErr != nil {
		ping.WillReturnError(pingErr)
	}

	client, redisMock := redismock.NewClientMock()
	if redisErr != nil {
		redisMock.ExpectPing().SetErr(redisErr)
	} else {
		redisMock.ExpectPing().SetVal("PONG")
	}

	h, err := NewHealthHandler(&config.Config{Version: "1.0.0"}, &Endpoints{DB: db, RedisClient: client})
	require.NoError(t, err)

	return h.Handler()
}

func TestHealthHandler(t *testing.T) {
	t.Run("All dependencies up", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newHealth(t, nil, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"sellit-backend"`)
	})

	t.Run("Database down", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newHealth(t, errors.New("connection refused"), nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "postgres ping failed")
	})

	t.Run("Redis down", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newHealth(t, nil, errors.New("i/o timeout")).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "redis ping failed")
	})
}

func TestChecksRejectMissingClients(t *testing.T) {
	assert.Error(t, postgresCheck(nil)(t.Context()))
	assert.Error(t, redisCheck(nil)(t.Context()))
}
