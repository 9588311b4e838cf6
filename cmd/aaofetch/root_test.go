package main

import (
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "aaofetch" {
			t.Errorf("expected use 'aaofetch', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions and version", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("runs a crawl without subcommand", func(t *testing.T) {
		t.Parallel()
		if cmd.RunE == nil {
			t.Error("expected root command to be runnable")
		}
	})

	t.Run("has crawl flags", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			shorthand string
			def       string
		}{
			{name: "max-pages", shorthand: "p", def: "100"},
			{name: "dir", shorthand: "d", def: "aao_decisions"},
			{name: "log-file", def: "aaofetch.log"},
			{name: "report", shorthand: "o", def: ""},
			{name: "proxy", def: ""},
			{name: "robots", def: "false"},
			{name: "no-ledger", def: "false"},
		}
		for _, tt := range tests {
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("%s: expected shorthand %q, got %q", tt.name, tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.def {
				t.Errorf("%s: expected default %q, got %q", tt.name, tt.def, flag.DefValue)
			}
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"verbose", "config"} {
			if cmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("expected persistent %s flag", name)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"init": false, "history": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Use]; ok {
				want[sub.Use] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

func TestRootCmdRejectsArguments(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"unexpected"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for positional argument")
	}
}
