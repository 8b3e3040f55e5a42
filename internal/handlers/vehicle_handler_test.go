package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/services"
	"github.com/Arnav10090/Customer-web-portal/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleCreateOrGetSurvivesCacheFailure(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()
	cache := services.NewLookupCache(rdb, time.Minute, true)

	r := gin.New()
	r.POST("/vehicles", func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Set("email", "customer@example.com")
		c.Next()
	}, VehicleCreateOrGet(db, cache))

	post := func() (int, map[string]interface{}) {
		body, _ := json.Marshal(map[string]string{"vehicle_number": "mh12ab1234"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/vehicles", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		out := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return w.Code, out
	}

	code, out := post()
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, out["created"])

	// Повторный запрос сбрасывает кэш; недоступный Redis не ломает ответ
	code, out = post()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["created"])
}
