package authproto

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@b.co", true},
		{"user@example.com", true},
		{"first.last@sub.example.org", true},
		{"", false},
		{"abc.com", false},     // no '@'
		{"@b.co", false},       // empty local part
		{"a@.co", false},       // '.' directly after '@'
		{"a@bco", false},       // no '.' in domain
		{"a@b.", true},         // trailing dot is past position 1, accepted
		{"user@domain", false}, // bare domain
	}
	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Str0ngP@ssw0rd", true},
		{"Aa1!aaaaaa", true},       // exactly 10 with all classes
		{"", false},
		{"short1A!", false},        // under 10
		{"alllowercase1!", false},  // no uppercase
		{"ALLUPPERCASE1!", false},  // no lowercase
		{"NoDigitsHere!", false},   // no digit
		{"NoSpecials123A", false},  // no special character
		{"Sp@ce is ok 1A", true},   // space is not special but other classes present
		{"Tr1cky~pass", true},      // '~' satisfies the special-character class
	}
	for _, tt := range tests {
		if got := IsValidPassword(tt.password); got != tt.want {
			t.Errorf("IsValidPassword(%q) = %v, want %v", tt.password, got, tt.want)
		}
	}
}
