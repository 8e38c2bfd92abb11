package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{})

	for _, path := range [][]string{
		{"login"}, {"logout"}, {"whoami"}, {"repos"}, {"repos", "create"},
		{"commits"}, {"tree"}, {"file", "get"}, {"file", "put"}, {"file", "delete"}, {"version"},
	} {
		found, _, err := root.Find(path)
		if err != nil || found == root {
			t.Errorf("command %q not registered: %v", strings.Join(path, " "), err)
		}
	}

	login, _, _ := root.Find([]string{"login"})
	for _, name := range []string{"no-browser", "callback-port", "no-prompt"} {
		if login.Flags().Lookup(name) == nil {
			t.Errorf("login is missing --%s", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("root is missing --config")
	}
}

func TestVersionCommand(t *testing.T) {
	out := &bytes.Buffer{}
	root := newRootCmd(out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "gitpress ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCommitsRejectsBadRepoRef(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{})
	root.SetArgs([]string{"commits", "not-a-repo"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "owner/name") {
		t.Fatalf("expected owner/name error, got %v", err)
	}
}
