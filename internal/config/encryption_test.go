// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestNewCredentialEncryptor(t *testing.T) {
	tests := []struct {
		name      string
		jwtSecret string
		wantErr   error
	}{
		{name: "valid secret", jwtSecret: "my-super-secret-jwt-key", wantErr: nil},
		{name: "empty secret", jwtSecret: "", wantErr: ErrEmptySecret},
		{name: "short secret", jwtSecret: "x", wantErr: nil}, // HKDF can derive from any length
		{name: "long secret", jwtSecret: strings.Repeat("a", 1000), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewCredentialEncryptor(tt.jwtSecret)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewCredentialEncryptor() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && enc == nil {
				t.Error("NewCredentialEncryptor() returned nil encryptor without error")
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-jwt-secret-for-round-trip")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor() error = %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"phoneburner api key", "pb_live_4f8a2c91d3e7b605"},
		{"airtable pat", "patAbCdEf123456.0123456789abcdef0123456789abcdef"},
		{"unicode", "clé-secrète-日本語"},
		{"single char", "x"},
		{"long credential", strings.Repeat("k", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if ciphertext == tt.plaintext {
				t.Error("Encrypt() returned plaintext unchanged")
			}

			decrypted, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if decrypted != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncryptUniqueNonce(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-jwt-secret-nonce")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor() error = %v", err)
	}

	first, err := enc.Encrypt("same-credential")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	second, err := enc.Encrypt("same-credential")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if first == second {
		t.Error("two encryptions of the same plaintext produced identical ciphertexts")
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-jwt-secret")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor() error = %v", err)
	}

	if _, err := enc.Encrypt(""); !errors.Is(err, ErrEmptyPlaintext) {
		t.Errorf("Encrypt(\"\") error = %v, want ErrEmptyPlaintext", err)
	}
}

func TestDecryptErrors(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-jwt-secret")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor() error = %v", err)
	}

	tests := []struct {
		name       string
		ciphertext string
		wantErr    error
	}{
		{"empty", "", ErrEmptyCiphertext},
		{"not base64", "!!!not-base64!!!", ErrInvalidCiphertext},
		{"too short", base64.StdEncoding.EncodeToString([]byte("short")), ErrCiphertextTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Decrypt(tt.ciphertext); !errors.Is(err, tt.wantErr) {
				t.Errorf("Decrypt(%q) error = %v, want %v", tt.ciphertext, err, tt.wantErr)
			}
		})
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-jwt-secret-tamper")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor() error = %v", err)
	}

	ciphertext, err := enc.Encrypt("pb_live_credential")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}
	raw[len(raw)-1] ^= 0x01 // flip one bit in the auth tag
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := enc.Decrypt(tampered); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt(tampered) error = %v, want ErrDecryptionFailed", err)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	encA, err := NewCredentialEncryptor("jwt-secret-a")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor() error = %v", err)
	}
	encB, err := NewCredentialEncryptor("jwt-secret-b")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor() error = %v", err)
	}

	ciphertext, err := encA.Encrypt("credential")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := encB.Decrypt(ciphertext); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt with wrong key error = %v, want ErrDecryptionFailed", err)
	}
}

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"ab", "****"},
		{"abcd", "****"},
		{"abcde", "****...bcde"},
		{"pb_live_4f8a2c91d3e7b605", "****...b605"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := MaskCredential(tt.input); got != tt.want {
				t.Errorf("MaskCredential(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateEncryptionSetup(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-jwt-secret-setup")
	if err != nil {
		t.Fatalf("NewCredentialEncryptor() error = %v", err)
	}

	if err := enc.ValidateEncryptionSetup(); err != nil {
		t.Errorf("ValidateEncryptionSetup() error = %v, want nil", err)
	}
}
