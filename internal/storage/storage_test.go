package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCipher_SealOpenRoundtrip(t *testing.T) {
	c, err := NewCipher("clave-secreta")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	plain := []byte("contenido confidencial")

	sealed, err := c.Seal(plain)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, plain) {
		t.Fatal("sealed content must not embed the plaintext")
	}

	opened, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Fatalf("roundtrip mismatch: %q", opened)
	}
}

func TestCipher_WrongKeyFails(t *testing.T) {
	a, _ := NewCipher("clave-a")
	b, _ := NewCipher("clave-b")

	sealed, err := a.Seal([]byte("dato"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := b.Open(sealed); err == nil {
		t.Fatal("expected open to fail with the wrong key")
	}
	if _, err := a.Open(sealed[:5]); err == nil {
		t.Fatal("expected truncated content to fail")
	}
}

func TestCipher_EmptyKeyRejected(t *testing.T) {
	if _, err := NewCipher(""); err == nil {
		t.Fatal("expected error for empty passphrase")
	}
}

func TestStoredName(t *testing.T) {
	name := StoredName("/tmp/subida/informe anual.pdf")
	if !strings.HasSuffix(name, "_informe anual.pdf") {
		t.Fatalf("stored name must keep the base name: %q", name)
	}
	if strings.Contains(name, "/") {
		t.Fatalf("stored name must not carry path segments: %q", name)
	}
	if name == StoredName("informe anual.pdf") {
		t.Fatal("stored names must be unique per call")
	}
}

func TestLocalStorage_PublicRoundtrip(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), nil)
	ctx := context.Background()
	stored := StoredName("logo.png")

	if err := s.Save(ctx, "empresa", stored, []byte("imagen"), true); err != nil {
		t.Fatalf("save: %v", err)
	}
	content, err := s.Read(ctx, "empresa", stored, true)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "imagen" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestLocalStorage_PrivateEncryptsAtRest(t *testing.T) {
	base := t.TempDir()
	cipher, err := NewCipher("clave")
	if err != nil {
		t.Fatal(err)
	}
	s := NewLocalStorage(base, cipher)
	ctx := context.Background()
	stored := StoredName("contrato.pdf")

	if err := s.Save(ctx, "empresa", stored, []byte("texto plano"), false); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(base, "empresa", stored))
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if bytes.Contains(raw, []byte("texto plano")) {
		t.Fatal("private artifact stored in plaintext")
	}

	content, err := s.Read(ctx, "empresa", stored, false)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "texto plano" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestLocalStorage_PrivateWithoutCipherRejected(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), nil)
	ctx := context.Background()

	if err := s.Save(ctx, "empresa", "x.pdf", []byte("dato"), false); err == nil {
		t.Fatal("expected private save without a cipher to fail")
	}
	if _, err := s.Read(ctx, "empresa", "x.pdf", false); err == nil {
		t.Fatal("expected private read without a cipher to fail")
	}
}

func TestLocalStorage_DeleteTolerantOfMissing(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), nil)
	ctx := context.Background()
	stored := StoredName("nota.txt")

	if err := s.Save(ctx, "pais", stored, []byte("nota"), true); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(ctx, "pais", stored); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Read(ctx, "pais", stored, true); err == nil {
		t.Fatal("expected read to fail after delete")
	}
	if err := s.Delete(ctx, "pais", stored); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestLocalStorage_StripsPathTraversal(t *testing.T) {
	base := t.TempDir()
	s := NewLocalStorage(base, nil)
	ctx := context.Background()

	if err := s.Save(ctx, "pais", "../../escape.txt", []byte("fuera"), true); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "pais", "escape.txt")); err != nil {
		t.Fatalf("artifact should land inside the entity dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(base), "escape.txt")); err == nil {
		t.Fatal("artifact escaped the base path")
	}
}
