package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMergeListsDropsCommentsAndDuplicates(t *testing.T) {
	got := mergeLists(
		[]string{"https://a.example/list.txt", "https://b.example/list.txt"},
		[]string{"[Adblock Plus 2.0]\n! Title: A\n||ads.example^\n\n@@||ok.example^\n", "||ads.example^\n||track.example^\r\n"},
	)
	want := "! ayen prebuilt filter list\n" +
		"! source: https://a.example/list.txt\n" +
		"! source: https://b.example/list.txt\n" +
		"||ads.example^\n" +
		"@@||ok.example^\n" +
		"||track.example^\n"
	if got != want {
		t.Fatalf("unexpected merge:\n%s", got)
	}
}

func TestReadIncludesKeepsOrderAndReportsMissing(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.txt")
	second := filepath.Join(dir, "second.txt")
	if err := os.WriteFile(first, []byte("||one.example^\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(second, []byte("||two.example^\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	texts, err := readIncludes([]string{first, second})
	if err != nil {
		t.Fatalf("readIncludes: %v", err)
	}
	got := mergeLists([]string{first, second}, texts)
	want := "! ayen prebuilt filter list\n" +
		"! source: " + first + "\n" +
		"! source: " + second + "\n" +
		"||one.example^\n" +
		"||two.example^\n"
	if got != want {
		t.Fatalf("unexpected merge:\n%s", got)
	}
	if _, err := readIncludes([]string{filepath.Join(dir, "missing.txt")}); err == nil {
		t.Fatalf("expected missing include to fail")
	}
}
