package codec

import (
	"bytes"
	"testing"
)

func TestHexSumKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		alg  Algorithm
		in   string
		want string
	}{
		{"sha256 abc", SHA256, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"sha256 empty", SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"sha1 abc", SHA1, "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"md5 abc", MD5, "abc", "900150983cd24fb0d6963f7d28e17f72"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HexSum(tt.alg, []byte(tt.in))
			if got != tt.want {
				t.Errorf("HexSum(%v, %q) = %q, want %q", tt.alg, tt.in, got, tt.want)
			}
		})
	}
}

func TestSumDefaultsToSHA256(t *testing.T) {
	var zero Algorithm
	if !bytes.Equal(Sum(zero, []byte("abc")), Sum(SHA256, []byte("abc"))) {
		t.Error("zero-value algorithm should digest as SHA-256")
	}
	if len(Sum(SHA256, nil)) != 32 {
		t.Errorf("SHA-256 digest length = %d, want 32", len(Sum(SHA256, nil)))
	}
}

func TestBase64RoundTrip(t *testing.T) {
	in := []byte("hello\x00world\xff")
	enc := Base64Encode(in)
	out, err := Base64Decode(enc)
	if err != nil {
		t.Fatalf("Base64Decode: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Errorf("round trip = %q, want %q", out, in)
	}
}

func TestBase64DecodeRejectsGarbage(t *testing.T) {
	if _, err := Base64Decode("not-valid-base64!!!"); err == nil {
		t.Error("expected error decoding invalid base64")
	}
}

func TestHexRoundTrip(t *testing.T) {
	in := []byte{0x00, 0x01, 0xab, 0xff}
	enc := HexEncode(in)
	if enc != "0001abff" {
		t.Errorf("HexEncode = %q, want %q", enc, "0001abff")
	}
	out, err := HexDecode(enc)
	if err != nil {
		t.Fatalf("HexDecode: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestAlgorithmSize(t *testing.T) {
	if MD5.Size() != 16 || SHA1.Size() != 20 || SHA256.Size() != 32 {
		t.Errorf("unexpected digest sizes: md5=%d sha1=%d sha256=%d", MD5.Size(), SHA1.Size(), SHA256.Size())
	}
}
