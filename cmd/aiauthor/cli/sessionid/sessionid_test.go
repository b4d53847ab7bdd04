package sessionid

import (
	"encoding/json"
	"testing"
)

func TestComputeIsDeterministicAndSixteenHex(t *testing.T) {
	got := Compute("claude-code", "conv-1")
	if len(got) != 16 {
		t.Fatalf("Compute() length = %d, want 16", len(got))
	}
	if got != Compute("claude-code", "conv-1") {
		t.Fatalf("Compute() is not deterministic for identical inputs")
	}
	if got == Compute("claude-code", "conv-2") {
		t.Fatalf("Compute() collided for distinct conversation ids")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"full 16 hex", "0123456789abcdef", false},
		{"7 char prefix", "0123456", false},
		{"16 char prefix exactly at boundary", "abcdefabcdefabcd", false},
		{"too short (6 chars)", "012345", true},
		{"too long (17 chars)", "0123456789abcdef0", true},
		{"uppercase rejected", "0123456789ABCDEF", true},
		{"empty string rejected", "", true},
		{"non-hex character", "0123456789abcdeg", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && string(got) != tt.in {
				t.Fatalf("Parse(%q) = %q, want unchanged", tt.in, got)
			}
		})
	}
}

func TestValidateRequiresFullLength(t *testing.T) {
	if err := Hash("0123456789abcdef").Validate(); err != nil {
		t.Fatalf("Validate() on full hash: %v", err)
	}
	if err := Hash("0123456").Validate(); err == nil {
		t.Fatal("Validate() on 7-char prefix = nil, want error (writing requires full hash)")
	}
}

func TestIsEmpty(t *testing.T) {
	if !EmptyHash.IsEmpty() {
		t.Fatal("EmptyHash.IsEmpty() = false, want true")
	}
	if Hash("0123456789abcdef").IsEmpty() {
		t.Fatal("full hash IsEmpty() = true, want false")
	}
}

func TestMatches(t *testing.T) {
	full := Hash("0123456789abcdef")
	tests := []struct {
		name  string
		short Hash
		want  bool
	}{
		{"full hash matches itself", full, true},
		{"7 char prefix matches", Hash("0123456"), true},
		{"wrong prefix does not match", Hash("9999999"), false},
		{"longer than full does not match", Hash("0123456789abcdef00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.short.Matches(full); got != tt.want {
				t.Errorf("%q.Matches(%q) = %v, want %v", tt.short, full, got, tt.want)
			}
		})
	}
}

func TestAgentIDSessionHashMatchesCompute(t *testing.T) {
	a := AgentID{Tool: "claude-code", ID: "conv-1", Model: "m"}
	if a.SessionHash() != Compute("claude-code", "conv-1") {
		t.Fatal("AgentID.SessionHash() does not match Compute() with the same tool/id")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	h := Hash("0123456789abcdef")
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Hash
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != h {
		t.Fatalf("round trip = %q, want %q", got, h)
	}
}

func TestJSONUnmarshalEmptyStringYieldsEmptyHash(t *testing.T) {
	var got Hash
	if err := json.Unmarshal([]byte(`""`), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("Unmarshal(\"\") = %q, want EmptyHash", got)
	}
}

func TestJSONUnmarshalRejectsMalformedHash(t *testing.T) {
	var got Hash
	if err := json.Unmarshal([]byte(`"not-hex!"`), &got); err == nil {
		t.Fatal("Unmarshal(malformed) = nil error, want error")
	}
}
