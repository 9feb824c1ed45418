package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/tenderwatch/tenderwatch/internal/config"
	"github.com/tenderwatch/tenderwatch/internal/handlers"
	"github.com/tenderwatch/tenderwatch/internal/models"
	"github.com/tenderwatch/tenderwatch/internal/pipeline"
	"github.com/tenderwatch/tenderwatch/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Tender{},
		&models.TenderVersion{},
		&models.TenderView{},
		&models.Keyword{},
		&models.Subscription{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// newTestApp creates a Fiber app with auth middleware faked out to the given user
func newTestApp(userID string) *fiber.App {
	app := fiber.New()
	if userID != "" {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user", map[string]interface{}{"id": userID})
			return c.Next()
		})
	}
	return app
}

// seedTender creates a tender row through the merge pipeline
func seedTender(t *testing.T, db *gorm.DB, unitID, jobNumber string) string {
	raw := fmt.Sprintf(`{"unit_id":%q,"job_number":%q,"brief":{"title":"Seeded"}}`, unitID, jobNumber)
	merged, err := pipeline.Merge(db, pipeline.ParseRecord(json.RawMessage(raw)))
	if err != nil {
		t.Fatalf("Failed to seed tender: %v", err)
	}
	return merged.Tender.TenderID
}

func testConfig() *config.Config {
	return &config.Config{
		FreeKeywordLimit:     3,
		ProKeywordLimit:      30,
		BillingWebhookSecret: "test-secret",
	}
}

// stubSearcher serves canned upstream responses per keyword
type stubSearcher struct {
	records map[string][]json.RawMessage
}

func (s *stubSearcher) Search(_ context.Context, keyword string) ([]json.RawMessage, error) {
	return s.records[keyword], nil
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) (int, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}

	var result map[string]interface{}
	if resp.StatusCode != fiber.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&result)
	}
	return resp.StatusCode, result
}

// TestGetTenders tests the GET /api/tenders endpoint
func TestGetTenders(t *testing.T) {
	db := setupTestDB(t)

	if _, err := services.AddKeyword(db, "user-1", "road", 3); err != nil {
		t.Fatalf("Failed to add keyword: %v", err)
	}

	upstream := &stubSearcher{records: map[string][]json.RawMessage{
		"road": {json.RawMessage(`{"unit_id":"U1","job_number":"J1","brief":{"title":"Road Repair"}}`)},
	}}

	app := newTestApp("user-1")
	handler := &handlers.TenderHandler{DB: db, Upstream: upstream}
	app.Get("/api/tenders", handler.GetTenders)

	status, result := doJSON(t, app, "GET", "/api/tenders", nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}

	tenders, ok := result["tenders"].([]interface{})
	if !ok || len(tenders) != 1 {
		t.Fatalf("Expected 1 tender in response, got %v", result["tenders"])
	}

	entry := tenders[0].(map[string]interface{})
	if entry["isNew"] != true {
		t.Error("Expected isNew=true for a first-seen tender")
	}
}

// TestGetTendersNoKeywords tests that users without keywords get 204
func TestGetTendersNoKeywords(t *testing.T) {
	db := setupTestDB(t)

	app := newTestApp("user-1")
	handler := &handlers.TenderHandler{DB: db, Upstream: &stubSearcher{}}
	app.Get("/api/tenders", handler.GetTenders)

	status, _ := doJSON(t, app, "GET", "/api/tenders", nil)
	if status != 204 {
		t.Errorf("Expected status 204, got %d", status)
	}
}

// TestGetTendersUnauthenticated tests the missing-user path
func TestGetTendersUnauthenticated(t *testing.T) {
	db := setupTestDB(t)

	app := newTestApp("")
	handler := &handlers.TenderHandler{DB: db, Upstream: &stubSearcher{}}
	app.Get("/api/tenders", handler.GetTenders)

	status, _ := doJSON(t, app, "GET", "/api/tenders", nil)
	if status != 403 {
		t.Errorf("Expected status 403, got %d", status)
	}
}

// TestArchiveTender tests the POST /api/tenders/:tenderId/archive endpoint
func TestArchiveTender(t *testing.T) {
	db := setupTestDB(t)
	tenderID := seedTender(t, db, "U1", "J1")

	app := newTestApp("user-1")
	handler := &handlers.TenderHandler{DB: db, Upstream: &stubSearcher{}}
	app.Post("/api/tenders/:tenderId/archive", handler.ArchiveTender)

	status, result := doJSON(t, app, "POST",
		"/api/tenders/"+tenderID+"/archive", map[string]interface{}{"value": true})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if result["ok"] != true {
		t.Error("Expected ok=true in response")
	}

	data := result["data"].(map[string]interface{})
	if data["IsArchived"] != true {
		t.Errorf("Expected IsArchived=true, got %v", data["IsArchived"])
	}
}

// TestArchiveTenderNotFound tests archival of an unknown tender
func TestArchiveTenderNotFound(t *testing.T) {
	db := setupTestDB(t)

	app := newTestApp("user-1")
	handler := &handlers.TenderHandler{DB: db, Upstream: &stubSearcher{}}
	app.Post("/api/tenders/:tenderId/archive", handler.ArchiveTender)

	status, _ := doJSON(t, app, "POST",
		"/api/tenders/nope/archive", map[string]interface{}{"value": true})
	if status != 404 {
		t.Errorf("Expected status 404, got %d", status)
	}
}

// TestHighlightTender tests the POST /api/tenders/:tenderId/highlight endpoint
func TestHighlightTender(t *testing.T) {
	db := setupTestDB(t)
	tenderID := seedTender(t, db, "U2", "J2")

	app := newTestApp("user-1")
	handler := &handlers.TenderHandler{DB: db, Upstream: &stubSearcher{}}
	app.Post("/api/tenders/:tenderId/highlight", handler.HighlightTender)

	status, result := doJSON(t, app, "POST",
		"/api/tenders/"+tenderID+"/highlight", map[string]interface{}{"value": true})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}

	data := result["data"].(map[string]interface{})
	if data["IsHighlighted"] != true {
		t.Errorf("Expected IsHighlighted=true, got %v", data["IsHighlighted"])
	}
}

// TestAddAndListKeywords tests keyword creation and listing
func TestAddAndListKeywords(t *testing.T) {
	db := setupTestDB(t)

	app := newTestApp("user-1")
	handler := &handlers.KeywordHandler{DB: db, Cfg: testConfig()}
	app.Get("/api/keywords", handler.ListKeywords)
	app.Post("/api/keywords", handler.AddKeyword)

	status, result := doJSON(t, app, "POST",
		"/api/keywords", map[string]interface{}{"text": "  Road  Paving "})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	data := result["data"].(map[string]interface{})
	if data["Text"] != "road paving" {
		t.Errorf("Expected canonical keyword text, got %v", data["Text"])
	}

	req := httptest.NewRequest("GET", "/api/keywords", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var keywords []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&keywords); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(keywords) != 1 {
		t.Errorf("Expected 1 keyword, got %d", len(keywords))
	}
}

// TestListKeywordsEmpty tests that an empty keyword list returns 204
func TestListKeywordsEmpty(t *testing.T) {
	db := setupTestDB(t)

	app := newTestApp("user-1")
	handler := &handlers.KeywordHandler{DB: db, Cfg: testConfig()}
	app.Get("/api/keywords", handler.ListKeywords)

	status, _ := doJSON(t, app, "GET", "/api/keywords", nil)
	if status != 204 {
		t.Errorf("Expected status 204, got %d", status)
	}
}

// TestKeywordLimit tests the free tier keyword gate
func TestKeywordLimit(t *testing.T) {
	db := setupTestDB(t)

	app := newTestApp("user-1")
	handler := &handlers.KeywordHandler{DB: db, Cfg: testConfig()}
	app.Post("/api/keywords", handler.AddKeyword)

	for i := 0; i < 3; i++ {
		status, _ := doJSON(t, app, "POST",
			"/api/keywords", map[string]interface{}{"text": fmt.Sprintf("kw-%d", i)})
		if status != 200 {
			t.Fatalf("Expected status 200 on add %d, got %d", i, status)
		}
	}

	status, _ := doJSON(t, app, "POST",
		"/api/keywords", map[string]interface{}{"text": "one too many"})
	if status != 402 {
		t.Errorf("Expected status 402 past the free limit, got %d", status)
	}
}

// TestKeywordLimitProTier tests that an active pro subscription lifts the gate
func TestKeywordLimitProTier(t *testing.T) {
	db := setupTestDB(t)

	secret := testConfig().BillingWebhookSecret
	body, _ := json.Marshal(services.WebhookEvent{
		Type:      services.EventSubscriptionActivated,
		UserID:    "user-1",
		Plan:      models.TierPro,
		Reference: "sub_1",
		PeriodEnd: 4102444800, // 2100-01-01
	})
	if _, err := services.HandleWebhook(db, body, signBody(body, secret), secret); err != nil {
		t.Fatalf("Failed to activate subscription: %v", err)
	}

	app := newTestApp("user-1")
	handler := &handlers.KeywordHandler{DB: db, Cfg: testConfig()}
	app.Post("/api/keywords", handler.AddKeyword)

	for i := 0; i < 5; i++ {
		status, _ := doJSON(t, app, "POST",
			"/api/keywords", map[string]interface{}{"text": fmt.Sprintf("kw-%d", i)})
		if status != 200 {
			t.Fatalf("Expected status 200 on pro add %d, got %d", i, status)
		}
	}
}

// TestDeleteKeyword tests the DELETE /api/keywords/:keywordId endpoint
func TestDeleteKeyword(t *testing.T) {
	db := setupTestDB(t)

	keyword, err := services.AddKeyword(db, "user-1", "road", 3)
	if err != nil {
		t.Fatalf("Failed to add keyword: %v", err)
	}

	app := newTestApp("user-1")
	handler := &handlers.KeywordHandler{DB: db, Cfg: testConfig()}
	app.Delete("/api/keywords/:keywordId", handler.DeleteKeyword)

	status, _ := doJSON(t, app, "DELETE",
		fmt.Sprintf("/api/keywords/%d", keyword.KeywordID), nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}

	// Deleting again is a 404
	status, _ = doJSON(t, app, "DELETE",
		fmt.Sprintf("/api/keywords/%d", keyword.KeywordID), nil)
	if status != 404 {
		t.Errorf("Expected status 404 on second delete, got %d", status)
	}
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// TestBillingWebhook tests the POST /api/billing/webhook endpoint
func TestBillingWebhook(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()

	app := fiber.New()
	handler := &handlers.BillingHandler{DB: db, Cfg: cfg}
	app.Post("/api/billing/webhook", handler.Webhook)

	body, _ := json.Marshal(services.WebhookEvent{
		Type:      services.EventSubscriptionActivated,
		UserID:    "user-1",
		Plan:      models.TierPro,
		Reference: "sub_1",
		PeriodEnd: 4102444800,
	})

	req := httptest.NewRequest("POST", "/api/billing/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Billing-Signature", signBody(body, cfg.BillingWebhookSecret))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	if tier := services.GetTier(db, "user-1"); tier != models.TierPro {
		t.Errorf("Expected pro tier after activation, got %s", tier)
	}
}

// TestBillingWebhookBadSignature tests signature rejection
func TestBillingWebhookBadSignature(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New()
	handler := &handlers.BillingHandler{DB: db, Cfg: testConfig()}
	app.Post("/api/billing/webhook", handler.Webhook)

	body := []byte(`{"type":"subscription.activated","user_id":"user-1","plan":"pro"}`)

	req := httptest.NewRequest("POST", "/api/billing/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Billing-Signature", "deadbeef")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403, got %d", resp.StatusCode)
	}

	if tier := services.GetTier(db, "user-1"); tier != models.TierFree {
		t.Errorf("Expected free tier after rejected webhook, got %s", tier)
	}
}

// TestBillingWebhookMissingSignature tests the missing-header path
func TestBillingWebhookMissingSignature(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New()
	handler := &handlers.BillingHandler{DB: db, Cfg: testConfig()}
	app.Post("/api/billing/webhook", handler.Webhook)

	req := httptest.NewRequest("POST", "/api/billing/webhook",
		bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403, got %d", resp.StatusCode)
	}
}

// TestGetSubscription tests the GET /api/subscription endpoint
func TestGetSubscription(t *testing.T) {
	db := setupTestDB(t)

	app := newTestApp("user-1")
	handler := &handlers.BillingHandler{DB: db, Cfg: testConfig()}
	app.Get("/api/subscription", handler.GetSubscription)

	status, result := doJSON(t, app, "GET", "/api/subscription", nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if result["tier"] != models.TierFree {
		t.Errorf("Expected free tier, got %v", result["tier"])
	}
}
