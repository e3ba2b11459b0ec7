package repository

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestBuildLikeConditionSQLite(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("sqlite", []string{"order_no", " ", "guest_email"})
	if argCount != 2 {
		t.Fatalf("arg count want 2 got %d", argCount)
	}
	want := "order_no LIKE ? OR guest_email LIKE ?"
	if condition != want {
		t.Fatalf("condition mismatch, want %s got %s", want, condition)
	}
}

func TestBuildLikeConditionPostgres(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("postgres", []string{"guest_name"})
	if argCount != 1 || condition != "guest_name ILIKE ?" {
		t.Fatalf("unexpected postgres condition: %s (%d)", condition, argCount)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%test%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for idx, arg := range args {
		if arg != "%test%" {
			t.Fatalf("args[%d] want %%test%% got %v", idx, arg)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{gorm.ErrDuplicatedKey, true},
		{fmt.Errorf("create order: %w", gorm.ErrDuplicatedKey), true},
		{errors.New("UNIQUE constraint failed: orders.order_no"), true},
		{errors.New(`ERROR: duplicate key value violates unique constraint "idx_orders_order_no" (SQLSTATE 23505)`), true},
		{errors.New("record not found"), false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("IsUniqueViolation(%v) want %v got %v", tc.err, tc.want, got)
		}
	}
}
