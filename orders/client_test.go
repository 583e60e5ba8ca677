package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_VerifyOrderPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/orders/verify-payment" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer order-secret" {
			t.Errorf("auth header = %q", got)
		}
		var req VerifyPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.TransactionID != "TXN1" || req.Method != MethodUPIEmail {
			t.Errorf("unexpected request: %+v", req)
		}
		fmt.Fprint(w, `{"success":true,"order_id":"ORD1"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "order-secret")
	c.HTTPClient = srv.Client()

	resp, err := c.VerifyOrderPayment(context.Background(), VerifyPaymentRequest{
		TransactionID: "TXN1",
		Amount:        500.00,
		Issuer:        "HDFC Bank",
		Reference:     "UPIREF111",
		Method:        MethodUPIEmail,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !resp.Success || resp.OrderID != "ORD1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestClient_VerifyOrderPayment_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "order-secret")
	c.HTTPClient = srv.Client()

	_, err := c.VerifyOrderPayment(context.Background(), VerifyPaymentRequest{TransactionID: "TXN1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
}

func TestClient_VerifyOrderPayment_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "order-secret")
	c.HTTPClient = srv.Client()

	if _, err := c.VerifyOrderPayment(context.Background(), VerifyPaymentRequest{TransactionID: "TXN1"}); err == nil {
		t.Fatal("expected a decode error")
	}
}
