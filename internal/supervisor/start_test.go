package supervisor

import (
	"strings"
	"testing"
)

func TestSubstitutePlaceholders(t *testing.T) {
	command := []string{"${java}", "-jar", "${server_jar}", "nogui"}
	got := substitutePlaceholders(command, "/opt/java/bin/java", "/data/cache/server.jar")

	want := []string{"/opt/java/bin/java", "-jar", "/data/cache/server.jar", "nogui"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("arg %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSubstitutePlaceholdersLeavesOtherArgsAlone(t *testing.T) {
	got := substitutePlaceholders([]string{"-Xmx2G", "-Xms1G"}, "java", "server.jar")
	if got[0] != "-Xmx2G" || got[1] != "-Xms1G" {
		t.Fatalf("unexpected args: %v", got)
	}
}

func TestRandomAlphanumericLengthAndAlphabet(t *testing.T) {
	s, err := randomAlphanumeric(rconPasswordLength)
	if err != nil {
		t.Fatalf("randomAlphanumeric: %v", err)
	}
	if len(s) != rconPasswordLength {
		t.Fatalf("len(s) = %d, want %d", len(s), rconPasswordLength)
	}
	for _, r := range s {
		if !strings.ContainsRune(rconPasswordAlphabet, r) {
			t.Fatalf("character %q not in rcon password alphabet", r)
		}
	}
}

func TestRandomAlphanumericIsNotConstant(t *testing.T) {
	a, err := randomAlphanumeric(32)
	if err != nil {
		t.Fatalf("randomAlphanumeric: %v", err)
	}
	b, err := randomAlphanumeric(32)
	if err != nil {
		t.Fatalf("randomAlphanumeric: %v", err)
	}
	if a == b {
		t.Fatal("two independently generated passwords collided; randomness source is suspect")
	}
}
