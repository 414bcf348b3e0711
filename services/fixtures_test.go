package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/skillhat/database/dbtest"
	"github.com/anjiri1684/skillhat/models"
	"github.com/anjiri1684/skillhat/notifications"
	"github.com/anjiri1684/skillhat/payments"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	notifier *notifications.Notifier
	accounts *AccountService
	bookings *BookingService
	reviews  *ReviewService
	messages *MessagingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	log := zaptest.NewLogger(t)
	notifier := notifications.NewNotifier(db, nil, log)

	return &testEnv{
		db:       db,
		notifier: notifier,
		accounts: NewAccountService(db, "test-secret", time.Hour, log),
		bookings: NewBookingService(db, notifier, log, 2),
		reviews:  NewReviewService(db, notifier, log),
		messages: NewMessagingService(db, notifier, log),
	}
}

func (e *testEnv) registerClient(t *testing.T, email string) models.User {
	t.Helper()
	account, err := e.accounts.Register(context.Background(), RegisterInput{
		FullName: "Client " + email,
		Email:    email,
		Password: "password123",
		UserType: models.RoleClient,
	})
	require.NoError(t, err)
	return account.Owner()
}

func (e *testEnv) registerWorker(t *testing.T, email string, hourlyRate float64) models.WorkerAccount {
	t.Helper()
	account, err := e.accounts.Register(context.Background(), RegisterInput{
		FullName:   "Worker " + email,
		Email:      email,
		Password:   "password123",
		UserType:   models.RoleWorker,
		Profession: "Plumber",
		HourlyRate: hourlyRate,
		Location:   "Dhaka",
	})
	require.NoError(t, err)
	wa, ok := account.(models.WorkerAccount)
	require.True(t, ok)
	return wa
}

func futureDate() string {
	return time.Now().AddDate(0, 0, 3).Format(dateLayout)
}

func (e *testEnv) createBooking(t *testing.T, clientID, workerID uuid.UUID) *models.Booking {
	t.Helper()
	booking, err := e.bookings.Create(context.Background(), clientID, CreateBookingInput{
		WorkerID:      workerID,
		Title:         "Fix kitchen sink",
		Description:   "Leaking pipe",
		Location:      "Gulshan 2",
		Phone:         "01811111111",
		ScheduledDate: futureDate(),
		ScheduledTime: "10:00",
	})
	require.NoError(t, err)
	return booking
}

func (e *testEnv) reloadBooking(t *testing.T, id uuid.UUID) models.Booking {
	t.Helper()
	var b models.Booking
	require.NoError(t, e.db.First(&b, "id = ?", id).Error)
	return b
}

func (e *testEnv) reloadWorker(t *testing.T, id uuid.UUID) models.Worker {
	t.Helper()
	var w models.Worker
	require.NoError(t, e.db.First(&w, "id = ?", id).Error)
	return w
}

func (e *testEnv) notificationTitles(t *testing.T, userID uuid.UUID) []string {
	t.Helper()
	var list []models.Notification
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("created_at asc").Find(&list).Error)
	titles := make([]string, 0, len(list))
	for _, n := range list {
		titles = append(titles, n.Title)
	}
	return titles
}

// fakeSSLCommerz serves the session and validation endpoints from canned
// responses.
type fakeSSLCommerz struct {
	mu          sync.Mutex
	session     map[string]string
	validations map[string]map[string]string
	sessions    int
	validates   int
}

func newFakeSSLCommerz(t *testing.T) (*fakeSSLCommerz, *httptest.Server) {
	f := &fakeSSLCommerz{
		session: map[string]string{
			"status":         "SUCCESS",
			"sessionkey":     "sk123",
			"GatewayPageURL": "https://sandbox.sslcommerz.com/EasyCheckOut/sk123",
		},
		validations: map[string]map[string]string{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/gwprocess/v4/api.php":
			f.sessions++
			_ = json.NewEncoder(w).Encode(f.session)
		case "/validator/api/validationserverAPI.php":
			f.validates++
			resp, ok := f.validations[r.URL.Query().Get("val_id")]
			if !ok {
				resp = map[string]string{"status": "INVALID_TRANSACTION"}
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSSLCommerz) setSession(resp map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = resp
}

func (f *fakeSSLCommerz) setValidation(valID string, resp map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validations[valID] = resp
}

func (f *fakeSSLCommerz) validateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validates
}

func newPaymentService(e *testEnv, t *testing.T, baseURL string) *PaymentService {
	gateway := payments.NewSSLCommerz("store1", "store-secret", baseURL, 2*time.Second)
	return NewPaymentService(e.db, gateway, e.notifier, zaptest.NewLogger(t))
}

func newShortTimeoutGateway(baseURL string) *payments.SSLCommerz {
	return payments.NewSSLCommerz("store1", "store-secret", baseURL, 50*time.Millisecond)
}
