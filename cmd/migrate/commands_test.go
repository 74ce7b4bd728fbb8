package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestDownRejectsNonPositiveSteps(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"down", "--steps", "0"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--steps") {
		t.Fatalf("expected steps error, got %v", err)
	}
}

func TestUnknownSubcommand(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"sideways"})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"up", "down", "version"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("expected %s subcommand, got %v %v", name, sub, err)
		}
	}
}
