package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCallbackURLs = CallbackURLs{
	SuccessURL: "https://api.skillhat.test/api/v1/payments/callback/success",
	FailURL:    "https://api.skillhat.test/api/v1/payments/callback/fail",
	CancelURL:  "https://api.skillhat.test/api/v1/payments/callback/cancel",
	IPNURL:     "https://api.skillhat.test/api/v1/payments/ipn",
}

type paymentFixture struct {
	env     *testEnv
	gateway *fakeSSLCommerz
	svc     *PaymentService
	client  models.User
	worker  models.WorkerAccount
	booking *models.Booking
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	env := newTestEnv(t)
	gateway, srv := newFakeSSLCommerz(t)
	client := env.registerClient(t, "client@example.com")
	worker := env.registerWorker(t, "worker@example.com", 250)
	booking := env.createBooking(t, client.ID, worker.Profile.ID)

	return &paymentFixture{
		env:     env,
		gateway: gateway,
		svc:     newPaymentService(env, t, srv.URL),
		client:  client,
		worker:  worker,
		booking: booking,
	}
}

func (f *paymentFixture) initiate(t *testing.T) *InitiateResult {
	t.Helper()
	res, err := f.svc.Initiate(context.Background(), f.client.ID, f.booking.ID, testCallbackURLs)
	require.NoError(t, err)
	return res
}

func (f *paymentFixture) payment(t *testing.T, tranID string) models.Payment {
	t.Helper()
	var p models.Payment
	require.NoError(t, f.env.db.Where("transaction_id = ?", tranID).First(&p).Error)
	return p
}

func (f *paymentFixture) validPayload(tranID, valID string) map[string]string {
	return map[string]string{
		"tran_id":      tranID,
		"val_id":       valID,
		"status":       "VALID",
		"amount":       "500.00",
		"bank_tran_id": "BANK123",
		"card_type":    "BKASH-BKash",
		"card_brand":   "MOBILEBANKING",
		"value_a":      f.booking.ID.String(),
	}
}

func TestInitiate_Success(t *testing.T) {
	f := newPaymentFixture(t)

	res := f.initiate(t)
	assert.Equal(t, "https://sandbox.sslcommerz.com/EasyCheckOut/sk123", res.PaymentURL)
	assert.Regexp(t, `^SKILLHAT_[0-9A-F]{12}$`, res.TransactionID)

	p := f.payment(t, res.TransactionID)
	assert.Equal(t, models.PaymentPending, p.Status)
	require.NotNil(t, p.SessionKey)
	assert.Equal(t, "sk123", *p.SessionKey)
	assert.InDelta(t, 500.0, p.Amount, 0.001)
	assert.Equal(t, "BDT", p.Currency)
	assert.Equal(t, models.PaymentStatusPending, f.env.reloadBooking(t, f.booking.ID).PaymentStatus)
}

func TestInitiate_GatewayRejects(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.setSession(map[string]string{"status": "FAILED", "failedreason": "Invalid store credentials"})

	_, err := f.svc.Initiate(context.Background(), f.client.ID, f.booking.ID, testCallbackURLs)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindGateway, apperrors.KindOf(err))
	assert.Equal(t, "Invalid store credentials", apperrors.Message(err))

	var p models.Payment
	require.NoError(t, f.env.db.Where("booking_id = ?", f.booking.ID).First(&p).Error)
	assert.Equal(t, models.PaymentFailed, p.Status)
	assert.Contains(t, p.GatewayResponse, "Invalid store credentials")
	assert.Equal(t, models.PaymentStatusUnpaid, f.env.reloadBooking(t, f.booking.ID).PaymentStatus)
}

func TestInitiate_TransportFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	client := env.registerClient(t, "client@example.com")
	worker := env.registerWorker(t, "worker@example.com", 250)
	booking := env.createBooking(t, client.ID, worker.Profile.ID)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()
	svc := newPaymentService(env, t, baseURL)

	_, err := svc.Initiate(context.Background(), client.ID, booking.ID, testCallbackURLs)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindGateway, apperrors.KindOf(err))
	assert.NotContains(t, apperrors.Message(err), "store-secret")
	assert.NotContains(t, apperrors.Message(err), "127.0.0.1")

	var p models.Payment
	require.NoError(t, env.db.Where("booking_id = ?", booking.ID).First(&p).Error)
	assert.Equal(t, models.PaymentFailed, p.Status)
	assert.Contains(t, p.GatewayResponse, "error")
}

func TestInitiate_Preconditions(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	t.Run("worker cannot initiate", func(t *testing.T) {
		_, err := f.svc.Initiate(ctx, f.worker.User.ID, f.booking.ID, testCallbackURLs)
		assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.svc.Initiate(ctx, f.client.ID, uuid.New(), testCallbackURLs)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})

	t.Run("already paid", func(t *testing.T) {
		res := f.initiate(t)
		f.gateway.setValidation("v-paid", map[string]string{"status": "VALID", "tran_id": res.TransactionID, "amount": "500.00"})
		_, err := f.svc.ProcessCallback(ctx, f.validPayload(res.TransactionID, "v-paid"), "")
		require.NoError(t, err)

		_, err = f.svc.Initiate(ctx, f.client.ID, f.booking.ID, testCallbackURLs)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})

	t.Run("cancelled booking", func(t *testing.T) {
		other := f.env.createBooking(t, f.client.ID, f.worker.Profile.ID)
		_, err := f.env.bookings.Transition(ctx, f.client.ID, other.ID, ActionCancel, nil)
		require.NoError(t, err)

		_, err = f.svc.Initiate(ctx, f.client.ID, other.ID, testCallbackURLs)
		assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	})
}

func TestProcessCallback_ValidConfirmsBooking(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.initiate(t)
	f.gateway.setValidation("v1", map[string]string{"status": "VALID", "tran_id": res.TransactionID, "amount": "500.00"})

	out, err := f.svc.ProcessCallback(context.Background(), f.validPayload(res.TransactionID, "v1"), "")
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)

	p := f.payment(t, res.TransactionID)
	assert.Equal(t, models.PaymentCompleted, p.Status)
	assert.NotNil(t, p.PaidAt)
	assert.Equal(t, "v1", p.ValID)
	assert.Equal(t, "BANK123", p.BankTranID)
	assert.Equal(t, "bkash", p.PaymentMethod)

	b := f.env.reloadBooking(t, f.booking.ID)
	assert.Equal(t, models.PaymentStatusPaid, b.PaymentStatus)
	assert.Equal(t, models.BookingConfirmed, b.Status)
	assert.Equal(t, 1, f.gateway.validateCalls())

	assert.Contains(t, f.env.notificationTitles(t, f.client.ID), "Payment Successful")
	assert.Contains(t, f.env.notificationTitles(t, f.worker.User.ID), "Booking Paid")
}

func TestProcessCallback_ValidButValidationRejects(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.initiate(t)
	f.gateway.setValidation("forged", map[string]string{"status": "INVALID_TRANSACTION"})

	out, err := f.svc.ProcessCallback(context.Background(), f.validPayload(res.TransactionID, "forged"), "")
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)

	assert.Equal(t, models.PaymentFailed, f.payment(t, res.TransactionID).Status)
	b := f.env.reloadBooking(t, f.booking.ID)
	assert.Equal(t, models.PaymentStatusPending, b.PaymentStatus)
	assert.Equal(t, models.BookingPending, b.Status)
}

func TestProcessCallback_RejectionWithEmptyFieldsFails(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.initiate(t)
	f.gateway.setValidation("v-empty", map[string]string{"status": "INVALID_TRANSACTION", "tran_id": "", "amount": ""})

	out, err := f.svc.ProcessCallback(context.Background(), f.validPayload(res.TransactionID, "v-empty"), "")
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)

	assert.Equal(t, models.PaymentFailed, f.payment(t, res.TransactionID).Status)
	b := f.env.reloadBooking(t, f.booking.ID)
	assert.NotEqual(t, models.PaymentStatusPaid, b.PaymentStatus)
	assert.Equal(t, models.BookingPending, b.Status)
}

func TestProcessCallback_SuccessHintStillValidates(t *testing.T) {
	statusless := func(tranID, valID string) map[string]string {
		return map[string]string{"tran_id": tranID, "val_id": valID, "card_type": "VISA-City Bank"}
	}

	t.Run("validation confirms", func(t *testing.T) {
		f := newPaymentFixture(t)
		res := f.initiate(t)
		f.gateway.setValidation("v-ok", map[string]string{"status": "VALIDATED", "tran_id": res.TransactionID, "amount": "500.00"})

		out, err := f.svc.ProcessCallback(context.Background(), statusless(res.TransactionID, "v-ok"), CallbackValid)
		require.NoError(t, err)
		assert.Equal(t, "success", out.Status)
		assert.Equal(t, 1, f.gateway.validateCalls())

		p := f.payment(t, res.TransactionID)
		assert.Equal(t, models.PaymentCompleted, p.Status)
		assert.Equal(t, "visa", p.PaymentMethod)
		b := f.env.reloadBooking(t, f.booking.ID)
		assert.Equal(t, models.PaymentStatusPaid, b.PaymentStatus)
		assert.Equal(t, models.BookingConfirmed, b.Status)
	})

	t.Run("validation rejects", func(t *testing.T) {
		f := newPaymentFixture(t)
		res := f.initiate(t)

		out, err := f.svc.ProcessCallback(context.Background(), statusless(res.TransactionID, "v-unknown"), CallbackValid)
		require.NoError(t, err)
		assert.Equal(t, "error", out.Status)
		assert.Equal(t, 1, f.gateway.validateCalls())

		assert.Equal(t, models.PaymentFailed, f.payment(t, res.TransactionID).Status)
		b := f.env.reloadBooking(t, f.booking.ID)
		assert.NotEqual(t, models.PaymentStatusPaid, b.PaymentStatus)
		assert.Equal(t, models.BookingPending, b.Status)
	})
}

func TestProcessCallback_StaleFailureThenNewerAttemptPays(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	older := f.initiate(t)
	newer := f.initiate(t)

	_, err := f.svc.ProcessCallback(ctx, map[string]string{"tran_id": older.TransactionID, "status": "FAILED"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, f.payment(t, older.TransactionID).Status)
	assert.Equal(t, models.PaymentPending, f.payment(t, newer.TransactionID).Status)
	assert.Equal(t, models.PaymentStatusFailed, f.env.reloadBooking(t, f.booking.ID).PaymentStatus)

	f.gateway.setValidation("v-newer", map[string]string{"status": "VALID", "tran_id": newer.TransactionID, "amount": "500.00"})
	_, err = f.svc.ProcessCallback(ctx, f.validPayload(newer.TransactionID, "v-newer"), "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, f.env.reloadBooking(t, f.booking.ID).PaymentStatus)

	// a late cancel for the older attempt cannot undo a paid booking
	_, err = f.svc.ProcessCallback(ctx, map[string]string{"tran_id": older.TransactionID}, CallbackCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, f.env.reloadBooking(t, f.booking.ID).PaymentStatus)
}

func TestProcessCallback_ValidationMismatch(t *testing.T) {
	cases := []struct {
		name       string
		validation map[string]string
	}{
		{"other transaction", map[string]string{"status": "VALID", "tran_id": "SKILLHAT_OTHER0000000"}},
		{"wrong amount", map[string]string{"status": "VALIDATED", "amount": "5.00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newPaymentFixture(t)
			res := f.initiate(t)
			f.gateway.setValidation("v1", tc.validation)

			_, err := f.svc.ProcessCallback(context.Background(), f.validPayload(res.TransactionID, "v1"), "")
			require.NoError(t, err)
			assert.Equal(t, models.PaymentFailed, f.payment(t, res.TransactionID).Status)
			assert.NotEqual(t, models.PaymentStatusPaid, f.env.reloadBooking(t, f.booking.ID).PaymentStatus)
		})
	}
}

func TestProcessCallback_Failed(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.initiate(t)

	out, err := f.svc.ProcessCallback(context.Background(), map[string]string{
		"tran_id": res.TransactionID,
		"status":  "FAILED",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)

	assert.Equal(t, models.PaymentFailed, f.payment(t, res.TransactionID).Status)
	b := f.env.reloadBooking(t, f.booking.ID)
	assert.Equal(t, models.PaymentStatusFailed, b.PaymentStatus)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Zero(t, f.gateway.validateCalls())
}

func TestProcessCallback_CancelledAllowsRetry(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	first := f.initiate(t)

	_, err := f.svc.ProcessCallback(ctx, map[string]string{"tran_id": first.TransactionID}, CallbackCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, f.payment(t, first.TransactionID).Status)
	assert.Equal(t, models.PaymentStatusUnpaid, f.env.reloadBooking(t, f.booking.ID).PaymentStatus)

	second := f.initiate(t)
	assert.NotEqual(t, first.TransactionID, second.TransactionID)

	list, err := f.svc.ListPayments(ctx, f.worker.User.ID, f.booking.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestProcessCallback_UnknownStatusIsFailure(t *testing.T) {
	f := newPaymentFixture(t)
	res := f.initiate(t)

	_, err := f.svc.ProcessCallback(context.Background(), map[string]string{
		"tran_id": res.TransactionID,
		"status":  "UNATTEMPTED",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, f.payment(t, res.TransactionID).Status)
}

func TestProcessCallback_UnknownTransaction(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.ProcessCallback(context.Background(), map[string]string{
		"tran_id": "SKILLHAT_DOESNOTEXIST",
		"status":  "VALID",
		"val_id":  "v1",
	}, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	var count int64
	require.NoError(t, f.env.db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.gateway.validateCalls())
}

func TestProcessCallback_Idempotent(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	res := f.initiate(t)
	f.gateway.setValidation("v1", map[string]string{"status": "VALID", "tran_id": res.TransactionID, "amount": "500.00"})
	payload := f.validPayload(res.TransactionID, "v1")

	_, err := f.svc.ProcessCallback(ctx, payload, "")
	require.NoError(t, err)
	firstPayment := f.payment(t, res.TransactionID)
	firstBooking := f.env.reloadBooking(t, f.booking.ID)
	clientNotes := len(f.env.notificationTitles(t, f.client.ID))

	out, err := f.svc.ProcessCallback(ctx, payload, "")
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)

	again := f.payment(t, res.TransactionID)
	assert.Equal(t, firstPayment.Status, again.Status)
	require.NotNil(t, again.PaidAt)
	assert.True(t, firstPayment.PaidAt.Equal(*again.PaidAt))
	assert.Equal(t, firstBooking.Status, f.env.reloadBooking(t, f.booking.ID).Status)
	assert.Equal(t, clientNotes, len(f.env.notificationTitles(t, f.client.ID)))
	assert.Equal(t, 1, f.gateway.validateCalls())

	t.Run("late failure does not downgrade", func(t *testing.T) {
		_, err := f.svc.ProcessCallback(ctx, map[string]string{"tran_id": res.TransactionID, "status": "FAILED"}, "")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCompleted, f.payment(t, res.TransactionID).Status)
		assert.Equal(t, models.PaymentStatusPaid, f.env.reloadBooking(t, f.booking.ID).PaymentStatus)
	})
}

func TestProcessCallback_SecondPaymentIsNotCompleted(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	first := f.initiate(t)
	second := f.initiate(t)
	f.gateway.setValidation("v1", map[string]string{"status": "VALID", "tran_id": first.TransactionID})
	f.gateway.setValidation("v2", map[string]string{"status": "VALID", "tran_id": second.TransactionID})

	_, err := f.svc.ProcessCallback(ctx, f.validPayload(first.TransactionID, "v1"), "")
	require.NoError(t, err)
	out, err := f.svc.ProcessCallback(ctx, f.validPayload(second.TransactionID, "v2"), "")
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)

	var completed int64
	require.NoError(t, f.env.db.Model(&models.Payment{}).
		Where("booking_id = ? AND status = ?", f.booking.ID, models.PaymentCompleted).
		Count(&completed).Error)
	assert.EqualValues(t, 1, completed)
	assert.Contains(t, f.payment(t, second.TransactionID).GatewayResponse, "duplicate_payment")
}

func TestProcessCallback_PaidAfterCancelKeepsStatus(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	res := f.initiate(t)

	_, err := f.env.bookings.Transition(ctx, f.client.ID, f.booking.ID, ActionCancel, nil)
	require.NoError(t, err)

	f.gateway.setValidation("v1", map[string]string{"status": "VALID", "tran_id": res.TransactionID})
	_, err = f.svc.ProcessCallback(ctx, f.validPayload(res.TransactionID, "v1"), "")
	require.NoError(t, err)

	b := f.env.reloadBooking(t, f.booking.ID)
	assert.Equal(t, models.BookingCancelled, b.Status)
	assert.Equal(t, models.PaymentStatusPaid, b.PaymentStatus)
}

func TestProcessCallback_ValidationUnreachableKeepsPaymentOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.registerClient(t, "client@example.com")
	worker := env.registerWorker(t, "worker@example.com", 250)
	booking := env.createBooking(t, client.ID, worker.Profile.ID)

	// session succeeds, validation times out
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/validator/api/validationserverAPI.php" {
			time.Sleep(300 * time.Millisecond)
			return
		}
		_, _ = w.Write([]byte(`{"status":"SUCCESS","sessionkey":"sk","GatewayPageURL":"https://pay/sk"}`))
	}))
	defer srv.Close()
	svc := newPaymentService(env, t, srv.URL)
	svc.gateway = newShortTimeoutGateway(srv.URL)

	res, err := svc.Initiate(ctx, client.ID, booking.ID, testCallbackURLs)
	require.NoError(t, err)

	_, err = svc.ProcessCallback(ctx, map[string]string{"tran_id": res.TransactionID, "status": "VALID", "val_id": "v1"}, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindGateway, apperrors.KindOf(err))

	var p models.Payment
	require.NoError(t, env.db.Where("transaction_id = ?", res.TransactionID).First(&p).Error)
	assert.Equal(t, models.PaymentPending, p.Status)
}

func TestListPayments_Stranger(t *testing.T) {
	f := newPaymentFixture(t)
	stranger := f.env.registerClient(t, "stranger@example.com")

	_, err := f.svc.ListPayments(context.Background(), stranger.ID, f.booking.ID)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
}
