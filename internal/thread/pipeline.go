package thread

import "sort"

// Process runs the full reconstruction pipeline over one finite batch:
// reply inference, thread building, turn condensing and chunk formatting.
// It is a pure transform — the input slice is copied, nothing is retained
// between calls, and identical input plus identical options always yields
// identical output. Empty input yields an empty result, not an error.
func Process(msgs []Message, group GroupInfo, opts Options) Result {
	result := Result{
		Group:  group,
		Params: opts.params(),
		Chunks: []ConversationChunk{},
	}
	if len(msgs) == 0 {
		return result
	}

	work := make([]Message, len(msgs))
	copy(work, msgs)
	sort.Slice(work, func(i, j int) bool { return work[i].ID < work[j].ID })

	available := make(map[int64]bool, len(work))
	for i := range work {
		available[work[i].ID] = true
	}

	result.Stats.TotalMessages = len(work)
	result.Stats.SameUserChained, result.Stats.ABAInferred, result.Stats.ProximityInferred =
		inferReplies(work, available, opts)

	threads := buildThreads(work, available, opts)
	result.Stats.RawThreadsBuilt = len(threads)

	result.Chunks, result.Stats.ThreadsFilteredOut = formatChunks(threads, group, opts)
	result.Stats.ChunksExported = len(result.Chunks)

	return result
}
