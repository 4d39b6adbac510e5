package app

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Command
		wantErr bool
	}{
		{"引数なしはrun", []string{}, CommandRun, false},
		{"nil引数はrun", nil, CommandRun, false},
		{"run", []string{"run"}, CommandRun, false},
		{"dry-run", []string{"dry-run"}, CommandDryRun, false},
		{"check", []string{"check", "extra"}, CommandCheck, false},
		{"不明なコマンド", []string{"dryrun"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.args)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCommand) {
					t.Errorf("ErrUnknownCommand が返されるべき: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
