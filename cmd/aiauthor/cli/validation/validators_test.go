package validation

import "testing"

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"plain id", "session-123", false},
		{"empty rejected", "", true},
		{"forward slash rejected", "a/b", true},
		{"backslash rejected", "a\\b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathSafe(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"empty is allowed", "", false},
		{"alphanumeric with dash/underscore", "abc_123-XYZ", false},
		{"rejects path separator", "a/b", true},
		{"rejects space", "a b", true},
		{"rejects dot-dot", "..", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathSafe("label", tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathSafe(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSessionHash(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		wantErr bool
	}{
		{"full 16 hex", "0123456789abcdef", false},
		{"7 char prefix", "0123456", false},
		{"too short", "012345", true},
		{"too long", "0123456789abcdef0", true},
		{"uppercase rejected", "0123456789ABCDEF", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionHash(tt.hash)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionHash(%q) error = %v, wantErr %v", tt.hash, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRangeToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"single line number", "5", false},
		{"ascending pair", "5-10", false},
		{"zero accepted by pattern shape", "0", false},
		{"non-numeric rejected", "abc", true},
		{"empty rejected", "", true},
		{"trailing dash rejected", "5-", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRangeToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRangeToken(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			}
		})
	}
}
