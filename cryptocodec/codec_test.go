package cryptocodec

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New("test-master-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	enc, err := c.Encrypt("super-secret-token")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !IsEncrypted(enc) {
		t.Error("IsEncrypted(enc) = false, want true")
	}
	dec, err := c.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if dec != "super-secret-token" {
		t.Errorf("Decrypt = %q, want %q", dec, "super-secret-token")
	}
}

func TestIsEncrypted_Plaintext(t *testing.T) {
	if IsEncrypted("plain-legacy-token") {
		t.Error("IsEncrypted(plaintext) = true, want false")
	}
}

func TestNew_EmptyKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") should error")
	}
}

func TestDecrypt_TamperedFails(t *testing.T) {
	c, _ := New("key-a")
	enc, _ := c.Encrypt("value")

	other, _ := New("key-b")
	if _, err := other.Decrypt(enc); err == nil {
		t.Error("Decrypt with wrong key should fail")
	}
}
