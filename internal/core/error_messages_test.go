package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"duplicate key", errors.New("ERROR: duplicate key value violates unique constraint \"users_pkey\""), "DB001"},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), "DB002"},
		{"sqlite foreign key", errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), "DB003"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), "DB007"},
		{"empty file", fmt.Errorf("read users.csv: %w", ErrEmptyFile), "SRC001"},
		{"invalid csv", fmt.Errorf("read votes.csv: %w: line 3", ErrInvalidCSV), "SRC002"},
		{"missing reference", fmt.Errorf("validate resumes: %w: users", ErrReferenceNotLoaded), "CFG001"},
		{"unknown entity", fmt.Errorf("%w: tags", ErrUnknownEntity), "CFG002"},
		{"busy", ErrRunInProgress, "RUN001"},
		{"cancelled", errors.New("persist: context canceled"), "RUN002"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
		{"case insensitive matching", errors.New("DUPLICATE KEY value violates"), "DB001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := fmt.Errorf("validate votes: %w: flows", ErrReferenceNotLoaded)
	result := FormatUserError(err)

	expected := "An entity references a table that was not loaded (Code: CFG001). Provide the referenced entity file in DATA_DIR"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", errors.New("duplicate key"), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
