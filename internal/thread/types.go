// Package thread reconstructs conversation threads from flat chat message
// batches: it infers missing reply links, groups messages into bounded
// trees, condenses consecutive same-sender messages into turns and emits
// anonymized conversation chunks for downstream embedding.
package thread

import "time"

// InferenceReason records which heuristic pass created an inferred reply link.
type InferenceReason string

const (
	ReasonNone          InferenceReason = ""
	ReasonSameUser      InferenceReason = "same_user_consecutive"
	ReasonABA           InferenceReason = "aba"
	ReasonTimeProximity InferenceReason = "time_proximity"
)

// Message is a single chat message in canonical form. IDs are unique and
// monotonically increasing within a batch; id order is chronological order.
type Message struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"` // raw source timestamp, RFC 3339 when parsable
	SenderID int64  `json:"sender_id"`
	Text     string `json:"text"`

	// ExplicitReplyID is the source-provided reply target (0 = none).
	// It is never modified after ingestion.
	ExplicitReplyID int64 `json:"reply_to_msg_id,omitempty"`

	// InferredReplyID is filled by the inference passes (0 = none), at most
	// once and only when no explicit target exists.
	InferredReplyID int64           `json:"inferred_reply_to,omitempty"`
	Reason          InferenceReason `json:"inference_reason,omitempty"`
}

// ReplyTo returns the resolved reply target: the explicit link when present,
// otherwise the inferred one. 0 means unlinked.
func (m *Message) ReplyTo() int64 {
	if m.ExplicitReplyID != 0 {
		return m.ExplicitReplyID
	}
	return m.InferredReplyID
}

// Linked reports whether the message has any reply link, explicit or inferred.
func (m *Message) Linked() bool {
	return m.ReplyTo() != 0
}

// ValidExplicitReply reports whether target is an acceptable explicit reply
// link for message id: present and strictly backward. Self- and
// forward-references are never valid, whatever the source claims.
func ValidExplicitReply(id, target int64) bool {
	return target > 0 && target < id
}

// parseDate parses a message timestamp. The bool is false for empty or
// unparsable values; callers treat that as "not close in time".
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Thread is a bounded tree of related messages, sorted ascending by id.
type Thread struct {
	Messages []Message
}

// Turn is a condensed block of consecutive same-sender messages, with the
// sender replaced by a thread-local anonymous label.
type Turn struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// ConversationChunk is the final serializable output record for one thread.
type ConversationChunk struct {
	ID                   string `json:"id"`
	Source               string `json:"source"`
	GroupID              int64  `json:"group_id"`
	GroupName            string `json:"group_name"`
	RootMessageID        int64  `json:"root_message_id"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date"`
	ParticipantCount     int    `json:"participant_count"`
	MessageCountOriginal int    `json:"message_count_original"`
	TurnCountCondensed   int    `json:"turn_count_condensed"`
	Content              string `json:"content"`
}

// GroupInfo identifies the chat group a batch came from.
type GroupInfo struct {
	Source    string `json:"source"`
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name"`
}

// Options holds the reconstruction tuning knobs.
type Options struct {
	// TimeThreshold and IDThreshold bound the proximity inference pass.
	TimeThreshold time.Duration
	IDThreshold   int64

	// MinParticipants filters out chunks with too few distinct senders.
	MinParticipants int

	// MaxThreadMessages and MaxThreadParticipants cap thread growth.
	MaxThreadMessages     int
	MaxThreadParticipants int
}

// DefaultOptions returns the standard reconstruction parameters.
func DefaultOptions() Options {
	return Options{
		TimeThreshold:         5 * time.Minute,
		IDThreshold:           5,
		MinParticipants:       2,
		MaxThreadMessages:     20,
		MaxThreadParticipants: 5,
	}
}

// Params is the serialized form of Options included in a Result.
type Params struct {
	TimeThresholdMinutes float64 `json:"time_threshold_proximity_minutes"`
	IDThreshold          int64   `json:"id_threshold_proximity"`
	MinParticipants      int     `json:"min_participants_per_chunk"`
}

func (o Options) params() Params {
	return Params{
		TimeThresholdMinutes: o.TimeThreshold.Minutes(),
		IDThreshold:          o.IDThreshold,
		MinParticipants:      o.MinParticipants,
	}
}

// Stats accumulates observability counters for one batch run.
type Stats struct {
	TotalMessages      int `json:"total_messages_fetched"`
	SameUserChained    int `json:"same_user_chained_count"`
	ABAInferred        int `json:"aba_inferred_count"`
	ProximityInferred  int `json:"proximity_inferred_count"`
	RawThreadsBuilt    int `json:"total_raw_threads_built"`
	ThreadsFilteredOut int `json:"threads_filtered_out"`
	ChunksExported     int `json:"final_chunks_exported"`
}

// Result is the full output of one batch run.
type Result struct {
	Group  GroupInfo           `json:"group_info"`
	Params Params              `json:"processing_parameters"`
	Stats  Stats               `json:"processing_stats"`
	Chunks []ConversationChunk `json:"conversation_chunks"`
}
