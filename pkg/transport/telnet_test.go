package transport

import (
	"bytes"
	"testing"
)

func TestFilterTelnetControlChars_PassThrough(t *testing.T) {
	in := []byte("show version\r\n")
	if got := filterTelnetControlChars(in); !bytes.Equal(got, in) {
		t.Errorf("Expected %q, got %q", in, got)
	}
}

func TestFilterTelnetControlChars_StripsNegotiation(t *testing.T) {
	in := []byte{telnetIAC, telnetDO, 1, 'h', 'i', telnetIAC, telnetWILL, 3}
	got := filterTelnetControlChars(in)
	if string(got) != "hi" {
		t.Errorf("Expected hi, got %q", got)
	}
}

func TestFilterTelnetControlChars_EscapedIAC(t *testing.T) {
	in := []byte{'a', telnetIAC, telnetIAC, 'b'}
	got := filterTelnetControlChars(in)
	want := []byte{'a', telnetIAC, 'b'}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestFilterTelnetControlChars_Subnegotiation(t *testing.T) {
	in := []byte{'x', telnetIAC, telnetSB, 24, 1, 2, telnetIAC, telnetSE, 'y'}
	got := filterTelnetControlChars(in)
	if string(got) != "xy" {
		t.Errorf("Expected xy, got %q", got)
	}
}

func TestIsPasswordPrompt(t *testing.T) {
	positives := []string{
		"password:",
		"user password: ",
		"passwd:",
	}
	for _, text := range positives {
		if !isPasswordPrompt(text) {
			t.Errorf("Expected %q to look like a password prompt", text)
		}
	}

	negatives := []string{
		"password required, but none set",
		"authentication failed: bad password:",
		"access denied password:",
		"welcome",
	}
	for _, text := range negatives {
		if isPasswordPrompt(text) {
			t.Errorf("Expected %q not to look like a password prompt", text)
		}
	}
}

func TestContainsAny(t *testing.T) {
	if !containsAny("username: admin", "login:", "username:") {
		t.Error("Expected match")
	}
	if containsAny("hello", "login:") {
		t.Error("Expected no match")
	}
}
