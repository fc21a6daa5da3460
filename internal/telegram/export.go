// Package telegram normalizes Telegram Desktop chat exports into the
// canonical message form consumed by the reconstruction engine.
package telegram

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/reweave/reweave/internal/thread"
)

// Source is the source label stamped on every chunk built from Telegram data.
const Source = "telegram"

// Export is the root structure of a Telegram Desktop export file.
type Export struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	ID       int64        `json:"id"`
	Messages []RawMessage `json:"messages"`
}

// RawMessage is one entry in an export's messages array. Text is either a
// plain string or an array mixing strings and typed entity objects.
type RawMessage struct {
	ID               int64           `json:"id"`
	Type             string          `json:"type"`
	Date             string          `json:"date"`
	From             string          `json:"from"`
	FromID           string          `json:"from_id"`
	Text             json.RawMessage `json:"text"`
	ReplyToMessageID int64           `json:"reply_to_message_id"`
}

// ParseExportFile reads a Telegram Desktop export and returns the canonical
// batch plus its group info.
func ParseExportFile(path string) ([]thread.Message, thread.GroupInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, thread.GroupInfo{}, fmt.Errorf("read export: %w", err)
	}
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, thread.GroupInfo{}, fmt.Errorf("parse export: %w", err)
	}
	return Normalize(export)
}

// Normalize converts an export into id-ascending canonical messages. Service
// messages, empty texts and messages without an identifiable sender are
// skipped; that is filtering, not an error.
func Normalize(export Export) ([]thread.Message, thread.GroupInfo, error) {
	group := thread.GroupInfo{
		Source:    Source,
		GroupID:   export.ID,
		GroupName: export.Name,
	}

	msgs := make([]thread.Message, 0, len(export.Messages))
	seen := make(map[int64]bool, len(export.Messages))

	for _, raw := range export.Messages {
		if raw.Type != "message" || seen[raw.ID] {
			continue
		}
		sender, ok := parseSenderID(raw.FromID)
		if !ok {
			continue
		}
		text := flattenText(raw.Text)
		if text == "" {
			continue
		}

		replyTo := raw.ReplyToMessageID
		if !thread.ValidExplicitReply(raw.ID, replyTo) {
			replyTo = 0 // self- or forward-references are dropped at the boundary
		}

		msgs = append(msgs, thread.Message{
			ID:              raw.ID,
			Date:            raw.Date,
			SenderID:        sender,
			Text:            text,
			ExplicitReplyID: replyTo,
		})
		seen[raw.ID] = true
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, group, nil
}

// parseSenderID extracts the numeric id from export sender refs like
// "user12345" or "channel67890".
func parseSenderID(fromID string) (int64, bool) {
	s := fromID
	for _, prefix := range []string{"user", "channel"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// flattenText joins the plain-string and entity parts of an export text
// value into one string.
func flattenText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			sb.WriteString(s)
			continue
		}
		var entity struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &entity); err == nil {
			sb.WriteString(entity.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
