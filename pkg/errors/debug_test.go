package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpPgxError(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505", ConstraintName: "participants_payment_inv_id_key", TableName: "participants"}
	err := Wrap(CodeConflict, fmt.Errorf("assign reference: %w", cause), "reference taken")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.Postgres == nil || d.Postgres.Constraint != "participants_payment_inv_id_key" {
		t.Fatalf("expected pg diagnostics, got %+v", d.Postgres)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected unwrap chain, got %v", d.Chain)
	}
	if d.Fields()["pg_code"] != "23505" {
		t.Fatalf("expected pg_code field, got %v", d.Fields())
	}
}

func TestDumpPqError(t *testing.T) {
	d := Dump(fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Table: "promo_codes"}))
	if d.Postgres == nil || d.Postgres.Table != "promo_codes" {
		t.Fatalf("expected pq diagnostics, got %+v", d.Postgres)
	}
}

func TestDumpPlainErrorOmitsPostgresFields(t *testing.T) {
	fields := Dump(fmt.Errorf("boom")).Fields()
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("unexpected pg fields: %v", fields)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatal("nil error should produce an empty dump")
	}
}
