package value

import (
	"errors"
	"strings"
	"testing"

	"github.com/hikkiyomi/ewlang/internal/bigint"
)

func integer(t *testing.T, s string) *Value {
	t.Helper()
	v, err := FromString(s)
	if err != nil {
		t.Fatalf("FromString(%q): %v", s, err)
	}
	return v
}

func array(n int) *Value {
	return &Value{kind: KindArray, elems: make([]Ref, n)}
}

// =============================================================================
// Integer operators
// =============================================================================

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b *Value) (*Value, error)
		a, b string
		want string
	}{
		{"add", (*Value).Add, "2", "3", "5"},
		{"sub", (*Value).Sub, "2", "3", "-1"},
		{"mul", (*Value).Mul, "-12", "12", "-144"},
		{"div", (*Value).Div, "100001", "7", "14285"},
		{"mod", (*Value).Mod, "100001", "7", "6"},
		{"div negative", (*Value).Div, "-7", "2", "-3"},
		{"mod negative", (*Value).Mod, "-7", "2", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(integer(t, tt.a), integer(t, tt.b))
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestArithmetic_Errors(t *testing.T) {
	tests := []struct {
		name    string
		op      func(a, b *Value) (*Value, error)
		a, b    *Value
		wantErr error
		want    string
	}{
		{"sum mismatch", (*Value).Add, FromInt64(1), array(1), ErrTypeMismatch, "summing integer and non-integer"},
		{"sub mismatch", (*Value).Sub, array(1), FromInt64(1), ErrTypeMismatch, "subtracting"},
		{"mod mismatch", (*Value).Mod, FromInt64(1), array(0), ErrTypeMismatch, "taking remainder of"},
		{"array sum", (*Value).Add, array(1), array(1), ErrUnsupported, "summing arrays"},
		{"div by zero", (*Value).Div, FromInt64(1), FromInt64(0), bigint.ErrDivisionByZero, "division by zero"},
		{"mod by zero", (*Value).Mod, FromInt64(1), FromInt64(0), bigint.ErrDivisionByZero, "division by zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op(tt.a, tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, op, b string
		want     string
	}{
		{"1", "<", "2", "1"},
		{"2", "<", "2", "0"},
		{"-5", ">", "-6", "1"},
		{"3", "<=", "3", "1"},
		{"-3", ">=", "3", "0"},
		{"10", "!=", "10", "0"},
		{"10", "==", "10", "1"},
		{"-0", "==", "0", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.a+tt.op+tt.b, func(t *testing.T) {
			got, err := integer(t, tt.a).Compare(tt.op, integer(t, tt.b))
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompare_Arrays(t *testing.T) {
	arr := array(2)
	zero := FromInt64(0)

	if eq, err := arr.Equal(zero); err != nil || eq {
		t.Errorf("array == 0: got %v, %v", eq, err)
	}
	if eq, err := zero.Equal(arr); err != nil || eq {
		t.Errorf("0 == array: got %v, %v", eq, err)
	}
	if ne, err := arr.NotEqual(zero); err != nil || !ne {
		t.Errorf("array != 0: got %v, %v", ne, err)
	}
	if _, err := arr.Equal(FromInt64(3)); !errors.Is(err, ErrUnsupported) {
		t.Errorf("array == 3: got %v", err)
	}
	if _, err := arr.Less(zero); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("array < 0: got %v", err)
	}
	if _, err := arr.Compare("<=", array(1)); !errors.Is(err, ErrUnsupported) {
		t.Errorf("array <= array: got %v", err)
	}
	if ok, err := arr.GreaterEqual(zero); err == nil || ok {
		t.Errorf("array >= 0 should fail, got %v", ok)
	}
}

func TestNegateAndTruthy(t *testing.T) {
	v := FromInt64(5)
	alias := v
	if err := v.Negate(); err != nil {
		t.Fatal(err)
	}
	if alias.String() != "-5" {
		t.Errorf("negation not visible through alias: %s", alias)
	}
	if err := array(1).Negate(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("negating array: got %v", err)
	}

	tests := []struct {
		v    *Value
		want bool
	}{
		{FromInt64(0), false},
		{FromInt64(-3), true},
		{array(0), true},
	}
	for _, tt := range tests {
		if tt.v.Truthy() != tt.want {
			t.Errorf("Truthy(%s) = %v", tt.v, !tt.want)
		}
	}
	if got := FromInt64(2).And(FromInt64(0)); got.String() != "0" {
		t.Errorf("2 and 0 = %s", got)
	}
	if got := FromInt64(0).Or(FromInt64(-1)); got.String() != "1" {
		t.Errorf("0 or -1 = %s", got)
	}
}

func TestIndex(t *testing.T) {
	if i, err := Index(bigint.New(2), 3); err != nil || i != 2 {
		t.Errorf("Index(2, 3) = %d, %v", i, err)
	}
	for _, n := range []string{"3", "-1", "99999999999999999999999"} {
		if _, err := Index(bigint.MustParse(n), 3); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Index(%s, 3): got %v", n, err)
		}
	}
}
