package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"contract-collab-service/internal/app"
	"contract-collab-service/internal/config"
	"contract-collab-service/internal/domain"
	"contract-collab-service/internal/identity"
	"contract-collab-service/internal/security"
)

const testJWTSecret = "abcdefghijklmnopqrstuvwxyz123456"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newCollabTestServer(t *testing.T) (string, *http.Client, func()) {
	t.Helper()

	cfg := &config.Config{
		Profile:             "test",
		HTTPAddr:            ":0",
		JWTIssuer:           "iss",
		JWTAudience:         "aud",
		JWTAccessSecret:     testJWTSecret,
		TokenPepper:         "integration-test-pepper",
		CollabTokenTTL:      time.Hour,
		PortalBaseURL:       "http://portal.test",
		CORSOrigins:         []string{"http://localhost:3000"},
		APIRateLimitRPM:     10000,
		InviteRateLimitRPM:  10000,
		ShutdownGracePeriod: time.Second,
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.CollabSession{}, &domain.ExternalAccessToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := app.InitializeApp(cfg, logger, db, nil, nil, identity.NewPassthroughResolver())

	srv := httptest.NewServer(a.Server.Handler)
	return srv.URL, srv.Client(), srv.Close
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func bearerHeader(t *testing.T, userID, displayName string) map[string]string {
	t.Helper()
	mgr := security.NewJWTManager("iss", "aud", testJWTSecret)
	token, err := mgr.SignAccessToken(userID, displayName, time.Hour)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}
