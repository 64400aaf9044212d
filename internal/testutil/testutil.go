package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-helpdesk/internal/auth"
	"github.com/hugh/go-helpdesk/internal/database"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestPassword = "testpassword123"

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every connection to :memory: is a fresh database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// CreateTestUser creates an active, verified agent with TestPassword
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:         "test-" + uuid.New().String()[:8] + "@example.com",
		Password:      TestPassword,
		Name:          "Test",
		LastName:      "User",
		Role:          models.RoleAgent,
		IsActive:      true,
		EmailVerified: true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateSystemUser creates the account that owns call-derived tickets
func CreateSystemUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Email:         "system-" + uuid.New().String()[:8] + "@helpdesk.local",
		Password:      uuid.New().String(),
		Name:          "System",
		Role:          models.RoleSystem,
		IsActive:      true,
		EmailVerified: true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create system user: %v", err)
	}

	return user
}

func CreateTestCustomer(t *testing.T, db *gorm.DB, name, phone string) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		Name:  name,
		Phone: phone,
		Email: "customer-" + uuid.New().String()[:8] + "@example.com",
	}

	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("failed to create test customer: %v", err)
	}

	return customer
}

// CreateTestTicket inserts a ticket directly, bypassing the numbering service
func CreateTestTicket(t *testing.T, db *gorm.DB, customerID, creatorID uuid.UUID, number string, status models.TicketStatus) *models.Ticket {
	t.Helper()

	ticket := &models.Ticket{
		Number:          number,
		ManagementType:  models.ManagementTypeGeneral,
		Subject:         "Test ticket " + number,
		Source:          models.TicketSourceManual,
		Status:          status,
		Priority:        models.TicketPriorityMedium,
		CustomerID:      customerID,
		CreatedByUserID: creatorID,
	}

	if err := db.Create(ticket).Error; err != nil {
		t.Fatalf("failed to create test ticket: %v", err)
	}

	return ticket
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// SentMail is one message captured by FakeMailer.
type SentMail struct {
	Kind  string // verification, reset
	To    string
	Name  string
	Code  string
	Token string
}

// FakeMailer records account emails instead of sending them. Err, when set,
// is returned from every send after the message is recorded.
type FakeMailer struct {
	mu   sync.Mutex
	Sent []SentMail
	Err  error
}

func (f *FakeMailer) SendVerification(ctx context.Context, to, name, code, token string) error {
	return f.record(SentMail{Kind: "verification", To: to, Name: name, Code: code, Token: token})
}

func (f *FakeMailer) SendPasswordReset(ctx context.Context, to, name, code, token string) error {
	return f.record(SentMail{Kind: "reset", To: to, Name: name, Code: code, Token: token})
}

func (f *FakeMailer) record(m SentMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, m)
	return f.Err
}

// Last returns the most recent message, or nil when nothing was sent.
func (f *FakeMailer) Last() *SentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return nil
	}
	m := f.Sent[len(f.Sent)-1]
	return &m
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	User       *models.User
	Token      string
}

// NewTestContext creates a complete test setup with DB, user, and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		User:       user,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
