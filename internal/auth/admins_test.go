package auth

import "testing"

func TestAdmins(t *testing.T) {
	admins := NewAdmins([]string{"123", " 456 ", ""})

	if !admins.Is("123") || !admins.Is("456") {
		t.Fatal("configured ids not recognized")
	}
	if !admins.Is(" 123 ") {
		t.Fatal("lookup should trim whitespace")
	}
	if admins.Is("789") || admins.Is("") {
		t.Fatal("unknown id recognized as admin")
	}

	var nilAdmins *Admins
	if nilAdmins.Is("123") {
		t.Fatal("nil predicate must deny")
	}
}
