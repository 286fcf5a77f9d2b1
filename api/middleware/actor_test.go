package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestActorContextLiftsHeaders(t *testing.T) {
	var gotID, gotRole string
	handler := ActorContext(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = ActorIDFromContext(r.Context())
		gotRole = ActorRoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", " 7f9c35f2-4a9a-4a5f-9d5d-3b1f6a1c0001 ")
	req.Header.Set("X-Actor-Role", "business")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotID != "7f9c35f2-4a9a-4a5f-9d5d-3b1f6a1c0001" {
		t.Fatalf("unexpected actor id %q", gotID)
	}
	if gotRole != "business" {
		t.Fatalf("unexpected actor role %q", gotRole)
	}
}

func TestActorContextLeavesContextEmptyWithoutHeaders(t *testing.T) {
	handler := ActorContext(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorIDFromContext(r.Context()) != "" {
			t.Fatal("expected empty actor id")
		}
		if ActorRoleFromContext(r.Context()) != "" {
			t.Fatal("expected empty actor role")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
