// Package bigint implements the arbitrary-precision signed decimal integers
// used for every numeric value in the ewlang VM.
//
// An Int stores its magnitude as a string of decimal digits, most significant
// digit first, plus a sign flag. All arithmetic is schoolbook decimal
// arithmetic on those digit strings. Values are immutable by convention:
// operators return new instances and only Negate mutates its receiver.
package bigint

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrSyntax is returned by Parse for text that is not a decimal numeral.
	ErrSyntax = errors.New("invalid decimal integer")
	// ErrDivisionByZero is returned by Div and Mod for a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidDigit guards the single-digit multiplication helper.
	ErrInvalidDigit = errors.New("multiplying by a non-decimal digit")
)

// Int is a signed decimal integer. The zero value is 0.
type Int struct {
	digits   string // magnitude, no leading zeros; "" or "0" for zero
	negative bool
}

// New returns the Int holding v.
func New(v int64) Int {
	s := strconv.FormatInt(v, 10)
	if strings.HasPrefix(s, "-") {
		return newInt(s[1:], true)
	}
	return newInt(s, false)
}

// FromDigits builds an Int from a magnitude and an explicit sign flag.
// The magnitude must consist of decimal digits only; leading zeros are dropped.
func FromDigits(digits string, negative bool) (Int, error) {
	if digits == "" || !allDigits(digits) {
		return Int{}, fmt.Errorf("%w: %q", ErrSyntax, digits)
	}
	return newInt(digits, negative), nil
}

// Parse reads an optionally '-'-prefixed decimal numeral.
func Parse(s string) (Int, error) {
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	return FromDigits(s, negative)
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(s string) Int {
	x, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return x
}

// IsNumeral reports whether s is a decimal numeral accepted by Parse.
func IsNumeral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return s != "" && allDigits(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// newInt normalizes a magnitude: no leading zeros and no negative zero.
func newInt(digits string, negative bool) Int {
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return Int{digits: "0"}
	}
	return Int{digits: digits, negative: negative}
}

func (x Int) mag() string {
	if x.digits == "" {
		return "0"
	}
	return x.digits
}

// IsZero reports whether x == 0.
func (x Int) IsZero() bool {
	return x.mag() == "0"
}

// Sign returns -1, 0 or +1.
func (x Int) Sign() int {
	switch {
	case x.IsZero():
		return 0
	case x.negative:
		return -1
	default:
		return 1
	}
}

// Abs returns |x|.
func (x Int) Abs() Int {
	return newInt(x.mag(), false)
}

// Neg returns -x.
func (x Int) Neg() Int {
	return newInt(x.mag(), !x.negative)
}

// Negate flips the sign of x in place. Zero stays non-negative.
func (x *Int) Negate() {
	*x = x.Neg()
}

// String renders the canonical signed decimal form.
func (x Int) String() string {
	if x.negative && !x.IsZero() {
		return "-" + x.mag()
	}
	return x.mag()
}

// Int64 converts x to a native integer when it fits.
func (x Int) Int64() (int64, bool) {
	v, err := strconv.ParseInt(x.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Add returns x + y. Mixed signs reduce to a subtraction of magnitudes.
func (x Int) Add(y Int) Int {
	if x.negative == y.negative {
		return newInt(addMag(x.mag(), y.mag()), x.negative)
	}
	if x.negative {
		return y.Sub(x.Abs())
	}
	return x.Sub(y.Abs())
}

// Sub returns x - y.
func (x Int) Sub(y Int) Int {
	if y.negative {
		return x.Add(y.Abs())
	}
	if x.negative {
		return x.Add(y.Neg())
	}
	if cmpMag(x.mag(), y.mag()) < 0 {
		return newInt(subMag(y.mag(), x.mag()), true)
	}
	return newInt(subMag(x.mag(), y.mag()), false)
}

// Mul returns x * y using long multiplication: one single-digit partial
// product per digit of y, shifted by its position and accumulated.
func (x Int) Mul(y Int) Int {
	a, b := x.mag(), y.mag()
	sum := "0"
	for i := 0; i < len(b); i++ {
		d := int(b[len(b)-1-i] - '0')
		partial, err := mulDigit(a, d)
		if err != nil {
			// b holds decimal digits only
			panic(err)
		}
		sum = addMag(sum, partial+strings.Repeat("0", i))
	}
	return newInt(sum, x.negative != y.negative)
}

// Div returns x / y truncated toward zero.
func (x Int) Div(y Int) (Int, error) {
	if y.IsZero() {
		return Int{}, ErrDivisionByZero
	}
	q := divMag(x.mag(), y.mag())
	return newInt(q, x.negative != y.negative), nil
}

// Mod returns x - (x/y)*y. The result carries the sign of x.
func (x Int) Mod(y Int) (Int, error) {
	q, err := x.Div(y)
	if err != nil {
		return Int{}, err
	}
	return x.Sub(q.Mul(y)), nil
}

// Cmp returns -1, 0 or +1 depending on whether x < y, x == y or x > y.
// Signs are compared first, then magnitudes.
func (x Int) Cmp(y Int) int {
	xs, ys := x.Sign(), y.Sign()
	if xs != ys {
		if xs < ys {
			return -1
		}
		return 1
	}
	c := cmpMag(x.mag(), y.mag())
	if xs < 0 {
		return -c
	}
	return c
}

func (x Int) Equal(y Int) bool        { return x.Cmp(y) == 0 }
func (x Int) NotEqual(y Int) bool     { return x.Cmp(y) != 0 }
func (x Int) Less(y Int) bool         { return x.Cmp(y) < 0 }
func (x Int) Greater(y Int) bool      { return x.Cmp(y) > 0 }
func (x Int) LessEqual(y Int) bool    { return x.Cmp(y) <= 0 }
func (x Int) GreaterEqual(y Int) bool { return x.Cmp(y) >= 0 }

// cmpMag compares two normalized magnitudes: the longer one wins, equal
// lengths compare digit by digit from the most significant end.
func cmpMag(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func addMag(a, b string) string {
	n := max(len(a), len(b))
	out := make([]byte, n+1)
	carry := 0
	for i := 0; i < n; i++ {
		s := carry
		if i < len(a) {
			s += int(a[len(a)-1-i] - '0')
		}
		if i < len(b) {
			s += int(b[len(b)-1-i] - '0')
		}
		out[n-i] = byte(s%10) + '0'
		carry = s / 10
	}
	out[0] = byte(carry) + '0'
	return trimZeros(string(out))
}

// subMag returns a - b for magnitudes with a >= b.
func subMag(a, b string) string {
	out := make([]byte, len(a))
	borrow := 0
	for i := 0; i < len(a); i++ {
		d := int(a[len(a)-1-i]-'0') - borrow
		if i < len(b) {
			d -= int(b[len(b)-1-i] - '0')
		}
		if d < 0 {
			d += 10
			borrow = 1
		} else {
			borrow = 0
		}
		out[len(a)-1-i] = byte(d) + '0'
	}
	return trimZeros(string(out))
}

// mulDigit multiplies a magnitude by a single decimal digit.
func mulDigit(a string, k int) (string, error) {
	if k < 0 || k > 9 {
		return "", fmt.Errorf("%w: %d", ErrInvalidDigit, k)
	}
	out := make([]byte, len(a)+1)
	carry := 0
	for i := len(a) - 1; i >= 0; i-- {
		p := int(a[i]-'0')*k + carry
		out[i+1] = byte(p%10) + '0'
		carry = p / 10
	}
	out[0] = byte(carry) + '0'
	return trimZeros(string(out)), nil
}

// divMag is long division of magnitudes. The running remainder is extended
// one digit at a time and the next quotient digit is the largest k in 1..9
// with divisor*k <= remainder, found by probing upward.
func divMag(a, b string) string {
	q := make([]byte, 0, len(a))
	rem := "0"
	for i := 0; i < len(a); i++ {
		rem = trimZeros(rem + a[i:i+1])
		if cmpMag(rem, b) < 0 {
			q = append(q, '0')
			continue
		}
		k := 1
		for k < 9 {
			next, _ := mulDigit(b, k+1)
			if cmpMag(next, rem) > 0 {
				break
			}
			k++
		}
		prod, _ := mulDigit(b, k)
		rem = subMag(rem, prod)
		q = append(q, byte(k)+'0')
	}
	return trimZeros(string(q))
}

func trimZeros(s string) string {
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}
