package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte(`{"enable_notifications":true}`)

	sealed, err := Seal("correct horse battery staple", plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatal("sealed output should carry the envelope magic")
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("sealed output must not contain the plaintext")
	}

	got, err := Open("correct horse battery staple", sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round-trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := Seal("passphrase-one", []byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, err = Open("passphrase-two", sealed)
	if !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestOpenNotSealed(t *testing.T) {
	_, err := Open("anything", []byte(`{"plain":"json"}`))
	if !errors.Is(err, ErrNotSealed) {
		t.Fatalf("expected ErrNotSealed, got %v", err)
	}
}

func TestOpenTruncated(t *testing.T) {
	sealed, err := Seal("pass", []byte("payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, err = Open("pass", sealed[:len(magic)+10])
	if err == nil {
		t.Fatal("expected error for truncated envelope")
	}
}

func TestSealEmptyPassphrase(t *testing.T) {
	if _, err := Seal("", []byte("payload")); err == nil {
		t.Fatal("expected error for empty passphrase")
	}
}

func TestSealUniqueSalts(t *testing.T) {
	a, err := Seal("pass", []byte("payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b, err := Seal("pass", []byte("payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two seals of the same payload should differ")
	}
}

func TestIsSealed(t *testing.T) {
	if IsSealed([]byte(`{"json":true}`)) {
		t.Fatal("plain JSON should not look sealed")
	}
	if IsSealed(nil) {
		t.Fatal("nil should not look sealed")
	}
}
