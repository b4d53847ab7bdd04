package redact

import "github.com/aiauthor/cli/cmd/aiauthor/cli/authorshiplog"

// Messages scrubs secrets out of every message's Text field and reports
// whether anything was changed. Call sites set PromptRecord.Redacted from
// the return value (spec §3 supplemental field) so a later reader knows the
// transcript text has already passed through redaction once and should not
// be re-scrubbed or treated as verbatim.
func Messages(messages []authorshiplog.Message) ([]authorshiplog.Message, bool) {
	changed := false
	out := make([]authorshiplog.Message, len(messages))
	for i, m := range messages {
		redactedText := String(m.Text)
		if redactedText != m.Text {
			changed = true
		}
		out[i] = authorshiplog.Message{Type: m.Type, Text: redactedText}
	}
	return out, changed
}

// PromptRecord returns a copy of p with its Messages scrubbed and Redacted
// set accordingly.
func PromptRecord(p *authorshiplog.PromptRecord) *authorshiplog.PromptRecord {
	cp := *p
	messages, changed := Messages(p.Messages)
	cp.Messages = messages
	cp.Redacted = p.Redacted || changed
	return &cp
}
