package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	refundsvc "github.com/viatura/viatura-backend/internal/refunds"
	"github.com/viatura/viatura-backend/pkg/logger"
)

const testSecret = "whsec_test_1234"

func signPayload(t *testing.T, payload string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func eventPayload() string {
	return `{"event_id":"evt-100","type":"refund.updated","data":{"provider_refund_id":"sq-refund-7","status":"succeeded"}}`
}

func TestRefundEventsRejectsBadSignature(t *testing.T) {
	applier := &fakeApplier{}
	handler := RefundEvents(applier, fakeSigner{}, &fakeGuard{}, webhookLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/refunds", strings.NewReader(eventPayload()))
	req.Header.Set("X-Provider-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(applier.calls) != 0 {
		t.Fatalf("applier should not run on bad signature")
	}
}

func TestRefundEventsAppliesStatus(t *testing.T) {
	applier := &fakeApplier{}
	guard := &fakeGuard{seen: map[string]bool{}}
	handler := RefundEvents(applier, fakeSigner{}, guard, webhookLogger())

	payload := eventPayload()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/refunds", strings.NewReader(payload))
	req.Header.Set("X-Provider-Signature", signPayload(t, payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(applier.calls) != 1 {
		t.Fatalf("expected one apply call, got %d", len(applier.calls))
	}
	call := applier.calls[0]
	if call.providerRefundID != "sq-refund-7" || call.status != refundsvc.ProviderRefundSucceeded {
		t.Fatalf("unexpected apply call %+v", call)
	}
}

func TestRefundEventsDropsDuplicateDelivery(t *testing.T) {
	applier := &fakeApplier{}
	guard := &fakeGuard{seen: map[string]bool{}}
	handler := RefundEvents(applier, fakeSigner{}, guard, webhookLogger())

	payload := eventPayload()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/refunds", strings.NewReader(payload))
		req.Header.Set("X-Provider-Signature", signPayload(t, payload))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, rec.Code)
		}
	}
	if len(applier.calls) != 1 {
		t.Fatalf("duplicate delivery must not reapply, got %d calls", len(applier.calls))
	}
}

func TestRefundEventsReleasesGuardOnApplyFailure(t *testing.T) {
	applier := &fakeApplier{err: io.ErrUnexpectedEOF}
	guard := &fakeGuard{seen: map[string]bool{}}
	handler := RefundEvents(applier, fakeSigner{}, guard, webhookLogger())

	payload := eventPayload()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/refunds", strings.NewReader(payload))
	req.Header.Set("X-Provider-Signature", signPayload(t, payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if guard.seen["evt-100"] {
		t.Fatalf("guard mark should be released after apply failure")
	}
}

func TestRefundEventsRejectsUnknownStatus(t *testing.T) {
	handler := RefundEvents(&fakeApplier{}, fakeSigner{}, &fakeGuard{seen: map[string]bool{}}, webhookLogger())

	payload := `{"event_id":"evt-101","type":"refund.updated","data":{"provider_refund_id":"sq-refund-8","status":"charged_back"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/refunds", strings.NewReader(payload))
	req.Header.Set("X-Provider-Signature", signPayload(t, payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type applyCall struct {
	providerRefundID string
	status           refundsvc.ProviderRefundStatus
	errorMessage     string
}

type fakeApplier struct {
	calls []applyCall
	err   error
}

func (f *fakeApplier) ApplyProviderStatus(ctx context.Context, providerRefundID string, status refundsvc.ProviderRefundStatus, errorMessage string) (*refundsvc.RefundDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, applyCall{providerRefundID, status, errorMessage})
	return &refundsvc.RefundDTO{}, nil
}

type fakeGuard struct {
	seen map[string]bool
}

func (f *fakeGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if f.seen[eventID] {
		return true, nil
	}
	f.seen[eventID] = true
	return false, nil
}

func (f *fakeGuard) Delete(ctx context.Context, eventID string) error {
	delete(f.seen, eventID)
	return nil
}

type fakeSigner struct{}

func (fakeSigner) SigningSecret() string { return testSecret }
