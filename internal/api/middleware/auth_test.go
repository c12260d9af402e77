package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAPIKeyManager_GeneratesAndPersistsKey(t *testing.T) {
	dataDir := t.TempDir()

	manager, err := NewAPIKeyManager(dataDir)
	if err != nil {
		t.Fatalf("NewAPIKeyManager failed: %v", err)
	}

	key := manager.GetCurrentKey()
	if len(key) != APIKeyLength*2 {
		t.Errorf("expected %d hex chars, got %d", APIKeyLength*2, len(key))
	}

	// A second manager over the same directory loads the same key.
	again, err := NewAPIKeyManager(dataDir)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.GetCurrentKey() != key {
		t.Error("expected persisted key to be reloaded")
	}
}

func TestAPIKeyManager_ResetInvalidatesOldKey(t *testing.T) {
	manager, err := NewAPIKeyManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewAPIKeyManager failed: %v", err)
	}

	oldKey := manager.GetCurrentKey()
	newKey, err := manager.ResetKey()
	if err != nil {
		t.Fatalf("ResetKey failed: %v", err)
	}

	if newKey == oldKey {
		t.Error("reset must produce a different key")
	}
	if manager.ValidateKey(oldKey) {
		t.Error("old key must stop validating after reset")
	}
	if !manager.ValidateKey(newKey) {
		t.Error("new key must validate")
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	manager, err := NewAPIKeyManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewAPIKeyManager failed: %v", err)
	}

	router := gin.New()
	router.Use(APIKeyMiddleware(manager))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	cases := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"valid key", manager.GetCurrentKey(), http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping", nil)
			if tc.key != "" {
				req.Header.Set(APIKeyHeader, tc.key)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, w.Code)
			}
		})
	}
}
