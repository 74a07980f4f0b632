package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
)

func TestWriteSuccessWrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"order_number": "ABC123"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data["order_number"] != "ABC123" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		wantDetails bool
	}{
		{
			name:        "validation echoes message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").WithDetails(map[string]string{"field": "quantity"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "quantity must be positive",
			wantDetails: true,
		},
		{
			name:    "payment hides processor detail",
			err:     pkgerrors.Wrap(pkgerrors.CodePayment, errors.New("card_error: declined"), "create intent"),
			status:  http.StatusBadRequest,
			code:    pkgerrors.CodePayment,
			message: "Sorry, your payment cannot be processed right now",
		},
		{
			name:    "wrapped not found keeps its message",
			err:     fmt.Errorf("lookup: %w", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "order not found",
		},
		{
			name:    "untyped errors become internal",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
		{
			name:    "internal details are dropped",
			err:     pkgerrors.New(pkgerrors.CodeInternal, "db exploded").WithDetails("stack"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
			var body ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != string(tc.code) || body.Error.Message != tc.message {
				t.Fatalf("unexpected error body %+v", body.Error)
			}
			if (body.Error.Details != nil) != tc.wantDetails {
				t.Fatalf("details presence mismatch: %v", body.Error.Details)
			}
		})
	}
}
