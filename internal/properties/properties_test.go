package properties

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestLoadSaveRoundTripByteIdentical(t *testing.T) {
	dir := t.TempDir()
	contents := "#Minecraft server properties\nserver-port=25565\nmotd=A Minecraft Server\n"
	writeFile(t, dir, contents)

	p, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := p.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != contents {
		t.Fatalf("round trip mismatch:\nwant %q\ngot  %q", contents, got)
	}
}

func TestInvalidLineRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "not-a-valid-line-without-equals\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid line")
	}
}

func TestGetAfterSet(t *testing.T) {
	p := New()
	p.Set("server-port", "25565")
	p.Set("server-port", "25566")

	v, ok := p.Get("server-port")
	if !ok || v != "25566" {
		t.Fatalf("expected most recently set value, got %q ok=%v", v, ok)
	}
}

func TestSetAppendsNewKeyInOrder(t *testing.T) {
	p := New()
	p.Set("a", "1")
	p.Set("b", "2")

	if v, _ := p.Get("a"); v != "1" {
		t.Fatalf("a=%q", v)
	}
	if v, _ := p.Get("b"); v != "2" {
		t.Fatalf("b=%q", v)
	}

	dir := t.TempDir()
	if err := p.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := os.ReadFile(filepath.Join(dir, FileName))
	if string(got) != "a=1\nb=2\n" {
		t.Fatalf("unexpected insertion order: %q", got)
	}
}
</content>
