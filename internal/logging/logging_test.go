package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger := New("debug", true)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = New("loud", false)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestMiddleware_Levels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		status int
		want   logrus.Level
	}{
		{http.StatusOK, logrus.InfoLevel},
		{http.StatusBadRequest, logrus.WarnLevel},
		{http.StatusInternalServerError, logrus.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			engine := gin.New()
			engine.Use(Middleware(logger))
			engine.GET("/x", func(c *gin.Context) { c.Status(tt.status) })

			engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			require.Len(t, hook.Entries, 1)
			entry := hook.LastEntry()
			assert.Equal(t, tt.want, entry.Level)
			assert.Equal(t, "/x", entry.Data["path"])
			assert.Equal(t, tt.status, entry.Data["status"])
		})
	}
}
