package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	creditledger "atelier/contexts/finance-core/credit-ledger"
	submissionservice "atelier/contexts/request-queue/submission-service"
	submissionhttp "atelier/contexts/request-queue/submission-service/transport/http"
	voteengine "atelier/contexts/request-queue/vote-engine"
)

func newTestServer(balances map[string]int) *Server {
	return New(
		creditledger.NewInMemoryModule(nil, nil, nil),
		submissionservice.NewInMemoryModule(nil, balances, nil, nil),
		voteengine.NewInMemoryModule(nil, nil, nil),
		nil,
		":0",
	)
}

func doJSON(t *testing.T, server *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestRequestsWithoutUserHeaderAreRejected(t *testing.T) {
	server := newTestServer(nil)

	rr := doJSON(t, server, http.MethodPost, "/v1/submissions", `{"character_name":"Mira","series":"Starfall"}`, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCreateSubmissionChargesAndReturnsPosition(t *testing.T) {
	server := newTestServer(map[string]int{"alice": 2})

	rr := doJSON(t, server, http.MethodPost, "/v1/submissions",
		`{"character_name":"Mira","series":"Starfall","is_public":true}`,
		map[string]string{"X-User-Id": "alice", "X-User-Tier": "2"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp submissionhttp.SubmissionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.QueueType != "paid" {
		t.Fatalf("expected paid lane, got %s", resp.QueueType)
	}
	if resp.QueuePosition == nil || *resp.QueuePosition != 1 {
		t.Fatalf("expected queue position 1, got %v", resp.QueuePosition)
	}
	if resp.CreditCost != 1 {
		t.Fatalf("expected credit cost 1, got %d", resp.CreditCost)
	}
}

func TestCreateSubmissionWithoutCreditsIsPaymentRequired(t *testing.T) {
	server := newTestServer(nil)

	rr := doJSON(t, server, http.MethodPost, "/v1/submissions",
		`{"character_name":"Mira","series":"Starfall"}`,
		map[string]string{"X-User-Id": "alice", "X-User-Tier": "2"})
	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestStartSubmissionRequiresAdmin(t *testing.T) {
	server := newTestServer(map[string]int{"alice": 2})

	created := doJSON(t, server, http.MethodPost, "/v1/submissions",
		`{"character_name":"Mira","series":"Starfall"}`,
		map[string]string{"X-User-Id": "alice", "X-User-Tier": "2"})
	if created.Code != http.StatusCreated {
		t.Fatalf("create failed with %d: %s", created.Code, created.Body.String())
	}
	var resp submissionhttp.SubmissionResponse
	if err := json.Unmarshal(created.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	rr := doJSON(t, server, http.MethodPost, "/v1/submissions/"+resp.SubmissionID+"/start", `{}`,
		map[string]string{"X-User-Id": "alice", "X-User-Tier": "2"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin start, got %d", rr.Code)
	}

	rr = doJSON(t, server, http.MethodPost, "/v1/submissions/"+resp.SubmissionID+"/start", `{}`,
		map[string]string{"X-User-Id": "staff", "X-Admin": "true"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin start, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestQueueViewRedactsPrivateEntriesForStrangers(t *testing.T) {
	server := newTestServer(map[string]int{"alice": 2})

	created := doJSON(t, server, http.MethodPost, "/v1/submissions",
		`{"character_name":"Secret Character","series":"Hidden Series","is_public":false}`,
		map[string]string{"X-User-Id": "alice", "X-User-Tier": "2"})
	if created.Code != http.StatusCreated {
		t.Fatalf("create failed with %d: %s", created.Code, created.Body.String())
	}

	rr := doJSON(t, server, http.MethodGet, "/v1/queues/paid", "",
		map[string]string{"X-User-Id": "stranger"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var queue submissionhttp.QueueResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &queue); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(queue.Items) != 1 {
		t.Fatalf("expected 1 queue entry, got %d", len(queue.Items))
	}
	if queue.Items[0].CharacterName != "" || queue.Items[0].Series != "" {
		t.Fatalf("expected redacted entry, got %q / %q", queue.Items[0].CharacterName, queue.Items[0].Series)
	}

	rr = doJSON(t, server, http.MethodGet, "/v1/queues/paid", "",
		map[string]string{"X-User-Id": "alice"})
	if err := json.Unmarshal(rr.Body.Bytes(), &queue); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if queue.Items[0].CharacterName != "Secret Character" {
		t.Fatalf("expected owner to see their own entry, got %q", queue.Items[0].CharacterName)
	}
}

func TestAdminGrantEndpointIsGuarded(t *testing.T) {
	server := newTestServer(nil)

	rr := doJSON(t, server, http.MethodPost, "/v1/admin/credits/grant",
		`{"user_id":"alice","tier":2,"month":"2026-08"}`,
		map[string]string{"X-User-Id": "alice"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin grant, got %d", rr.Code)
	}

	rr = doJSON(t, server, http.MethodPost, "/v1/admin/credits/grant",
		`{"user_id":"alice","tier":2,"month":"2026-08"}`,
		map[string]string{"X-User-Id": "staff", "X-Admin": "true"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin grant, got %d: %s", rr.Code, rr.Body.String())
	}
}
