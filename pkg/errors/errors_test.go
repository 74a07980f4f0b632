package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestCodeTable(t *testing.T) {
	cases := map[Code]Metadata{
		CodeValidation:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
		CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
		CodeForbidden:     {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
		CodeNotFound:      {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
		CodeConflict:      {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
		CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
		CodeInternal:      {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
		CodePayment:       {HTTPStatus: http.StatusBadRequest, PublicMessage: "Sorry, your payment cannot be processed right now", Retryable: true},
		CodeBadSignature:  {HTTPStatus: http.StatusBadRequest, PublicMessage: "invalid webhook payload"},
	}
	for code, want := range cases {
		if got := MetadataFor(code); got != want {
			t.Errorf("%s: got %+v want %+v", code, got, want)
		}
	}
	if got := MetadataFor("NOPE"); got != cases[CodeInternal] {
		t.Fatalf("unknown code should map to internal, got %+v", got)
	}
}

func TestWrapKeepsCauseAndDetails(t *testing.T) {
	cause := stdErrors.New("redis timeout")
	err := Wrap(CodeDependency, cause, "bag unavailable").WithDetails(map[string]any{"store": "redis"})

	if !stdErrors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if err.Code() != CodeDependency || err.Message() != "bag unavailable" {
		t.Fatalf("unexpected error %q", err.Error())
	}
	if err.Details() == nil {
		t.Fatal("details lost")
	}
	if New(CodeValidation, "x").Details() != nil {
		t.Fatal("New should not carry details")
	}
}

func TestIsCodeWalksWrappedErrors(t *testing.T) {
	outer := fmt.Errorf("materialize: %w", New(CodeNotFound, "product not found"))
	if !IsCode(outer, CodeNotFound) {
		t.Fatal("expected wrapped not found to match")
	}
	if IsCode(outer, CodeValidation) {
		t.Fatal("unexpected match for validation code")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) || As(nil) != nil {
		t.Fatal("plain and nil errors carry no code")
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key", TableName: "orders"}
	err := Wrap(CodeConflict, fmt.Errorf("insert order: %w", pgErr), "duplicate order")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %q", d.Code)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected three links, got %v", d.Chain)
	}
	if d.Postgres == nil || d.Postgres.SQLState != "23505" || d.Postgres.Constraint != "orders_order_number_key" {
		t.Fatalf("unexpected postgres info %+v", d.Postgres)
	}

	if plain := Dump(stdErrors.New("boom")); plain.Code != "" || plain.Postgres != nil {
		t.Fatalf("plain error should dump bare, got %+v", plain)
	}
}
