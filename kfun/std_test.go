package kfun

import (
	"errors"
	"testing"
)

func TestStandardKfuns(t *testing.T) {
	r := stdRegistry(t)

	tests := []struct {
		kfun string
		args []Value
		want Value
	}{
		{"strlen", []Value{NewString("hello")}, NewInt(5)},
		{"sizeof", []Value{NewArray(NewInt(1), NewInt(2))}, NewInt(2)},
		{"explode", []Value{NewString(",a,b,c,"), NewString(",")},
			NewArray(NewString("a"), NewString("b"), NewString("c"))},
		{"implode", []Value{NewArray(NewString("a"), NewString("b")), NewString("-")}, NewString("a-b")},
		{"lower_case", []Value{NewString("MiXeD")}, NewString("mixed")},
		{"upper_case", []Value{NewString("MiXeD")}, NewString("MIXED")},
	}

	for _, tt := range tests {
		t.Run(tt.kfun, func(t *testing.T) {
			f := NewFrame(tt.args...)
			if err := r.Call(f, mustIndex(t, r, tt.kfun), len(tt.args)); err != nil {
				t.Fatalf("%s() error: %v", tt.kfun, err)
			}
			if f.Depth() != 1 || !f.Top().Equal(tt.want) {
				t.Errorf("%s() stack = %v, want [%v]", tt.kfun, f.Stack(), tt.want)
			}
		})
	}
}

func TestStandardKfunBadArgument(t *testing.T) {
	r := stdRegistry(t)
	f := NewFrame(NewInt(3))
	err := r.Call(f, mustIndex(t, r, "strlen"), 1)
	if !errors.Is(err, ErrBadArgument) {
		t.Errorf("strlen(3) error = %v, want ErrBadArgument", err)
	}
	if err != nil && err.Error() != "Bad argument 1 for kfun strlen" {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestStandardLayout(t *testing.T) {
	r := stdRegistry(t)
	for i, name := range []string{"encrypt", "decrypt", "hash_string", "strlen", "sizeof", "time"} {
		if got := mustIndex(t, r, name); got != StableIndex(i) {
			t.Errorf("IndexOf(%s) = %d, want %d", name, got, i)
		}
	}
	for i, name := range []string{"explode", "implode", "lower_case", "upper_case"} {
		if got := mustIndex(t, r, name); got != StableIndex(128+i) {
			t.Errorf("IndexOf(%s) = %d, want %d", name, got, 128+i)
		}
	}
	if _, ok := r.Table().LookupRetired("crypt", 0); !ok {
		t.Error("placeholder 0.crypt missing")
	}
}

func TestExplode(t *testing.T) {
	r := stdRegistry(t)
	strs := func(ss ...string) Value {
		vals := make([]Value, len(ss))
		for i, s := range ss {
			vals[i] = NewString(s)
		}
		return NewArray(vals...)
	}

	tests := []struct {
		name     string
		str, sep string
		want     Value
	}{
		{"outer separators", ",a,b,c,", ",", strs("a", "b", "c")},
		{"doubled leading separator", ",,a,", ",", strs("", "a")},
		{"doubled trailing separator", "a,,", ",", strs("a", "")},
		{"separator characters at ends", "bxa", "ab", strs("bxa")},
		{"multi-character separator", "abxab", "ab", strs("x")},
		{"inner empty element", "a,,b", ",", strs("a", "", "b")},
		{"only a separator", ",", ",", strs()},
		{"empty string", "", ",", strs()},
		{"no separator", "abc", "", strs("a", "b", "c")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(NewString(tt.str), NewString(tt.sep))
			if err := r.Call(f, mustIndex(t, r, "explode"), 2); err != nil {
				t.Fatalf("explode(%q, %q) error: %v", tt.str, tt.sep, err)
			}
			if f.Depth() != 1 || !f.Top().Equal(tt.want) {
				t.Errorf("explode(%q, %q) = %v, want %v", tt.str, tt.sep, f.Stack(), tt.want)
			}
		})
	}
}
