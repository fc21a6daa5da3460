package thread

import (
	"fmt"
	"strings"
)

// formatChunks condenses each thread and serializes the ones that carry a
// real conversation. Threads under the participant floor are discarded, not
// errors; the filtered count feeds the run stats.
func formatChunks(threads []Thread, group GroupInfo, opts Options) (chunks []ConversationChunk, filteredOut int) {
	chunks = make([]ConversationChunk, 0, len(threads))

	for _, t := range threads {
		if len(t.Messages) == 0 {
			continue
		}

		turns, participants := condense(t)
		if participants < opts.MinParticipants {
			filteredOut++
			continue
		}

		parts := make([]string, 0, len(turns))
		for _, turn := range turns {
			parts = append(parts, turn.User+": "+turn.Text)
		}

		root := t.Messages[0]
		last := t.Messages[len(t.Messages)-1]
		chunks = append(chunks, ConversationChunk{
			ID:                   fmt.Sprintf("%s_%d_%d", group.Source, group.GroupID, root.ID),
			Source:               group.Source,
			GroupID:              group.GroupID,
			GroupName:            group.GroupName,
			RootMessageID:        root.ID,
			StartDate:            root.Date,
			EndDate:              last.Date,
			ParticipantCount:     participants,
			MessageCountOriginal: len(t.Messages),
			TurnCountCondensed:   len(turns),
			Content:              strings.TrimSpace(strings.Join(parts, "\n")),
		})
	}

	return chunks, filteredOut
}
