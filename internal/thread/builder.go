package thread

import (
	"sort"
	"time"
)

// interjectionGap is the maximum time gap under which an unlinked message
// from a different sender is judged an unrelated aside rather than a
// conversation boundary.
const interjectionGap = 30 * time.Second

// buildThreads partitions messages into bounded trees. Roots are messages
// with no resolvable in-batch reply target (minus interjections), processed
// ascending by id; each tree is grown breadth-first over the inverse reply
// graph. Messages that never make it into a thread are dropped.
func buildThreads(msgs []Message, available map[int64]bool, opts Options) []Thread {
	byID := make(map[int64]*Message, len(msgs))
	index := make(map[int64]int, len(msgs)) // id → position in msgs
	for i := range msgs {
		byID[msgs[i].ID] = &msgs[i]
		index[msgs[i].ID] = i
	}

	// children[x] = ids of messages whose resolved reply target is x.
	children := make(map[int64][]int64)
	for i := range msgs {
		if target := msgs[i].ReplyTo(); target != 0 && available[target] {
			children[target] = append(children[target], msgs[i].ID)
		}
	}
	for _, ids := range children {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	var rootIDs []int64
	for i := range msgs {
		m := &msgs[i]
		if target := m.ReplyTo(); target != 0 && available[target] {
			continue
		}
		if isInterjectedRoot(m, index, msgs, children) {
			continue
		}
		rootIDs = append(rootIDs, m.ID)
	}
	sort.Slice(rootIDs, func(i, j int) bool { return rootIDs[i] < rootIDs[j] })

	var threads []Thread
	consumed := make(map[int64]bool)

	for _, rootID := range rootIDs {
		if consumed[rootID] {
			continue
		}

		var admitted []int64
		participants := make(map[int64]bool)
		visited := make(map[int64]bool)
		queue := []int64{rootID}

		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]

			if !available[id] || visited[id] {
				continue
			}
			curr := byID[id]
			participants[curr.SenderID] = true

			// Hard caps: once the thread is full, stop admitting entirely.
			if len(admitted) >= opts.MaxThreadMessages || len(participants) > opts.MaxThreadParticipants {
				break
			}

			// Interjection check against the last admitted node.
			if len(admitted) > 0 && id != rootID {
				prev := byID[admitted[len(admitted)-1]]
				if curr.ReplyTo() != prev.ID &&
					curr.SenderID != prev.SenderID &&
					curr.Reason != ReasonTimeProximity &&
					withinGap(prev.Date, curr.Date, interjectionGap) {
					continue // skipped, children not explored
				}
			}

			visited[id] = true
			consumed[id] = true
			admitted = append(admitted, id)

			for _, child := range children[id] {
				if !visited[child] {
					queue = append(queue, child)
				}
			}
		}

		if len(admitted) == 0 {
			continue
		}
		t := Thread{Messages: make([]Message, 0, len(admitted))}
		for _, id := range admitted {
			t.Messages = append(t.Messages, *byID[id])
		}
		sort.Slice(t.Messages, func(i, j int) bool { return t.Messages[i].ID < t.Messages[j].ID })
		threads = append(threads, t)
	}

	return threads
}

// isInterjectedRoot drops a root candidate that looks like a throwaway aside:
// the very next message comes quickly from someone else, is itself unlinked,
// and nothing in the batch replies to the candidate.
func isInterjectedRoot(m *Message, index map[int64]int, msgs []Message, children map[int64][]int64) bool {
	i, ok := index[m.ID]
	if !ok || i+1 >= len(msgs) {
		return false
	}
	next := &msgs[i+1]
	if next.SenderID == m.SenderID || next.Linked() || next.Reason == ReasonTimeProximity {
		return false
	}
	if len(children[m.ID]) > 0 {
		return false
	}
	return withinGap(m.Date, next.Date, interjectionGap)
}

// withinGap reports whether the two timestamps parse and are at most gap
// apart (later minus earlier). Unparsable dates count as "not within".
func withinGap(earlier, later string, gap time.Duration) bool {
	et, ok := parseDate(earlier)
	if !ok {
		return false
	}
	lt, ok := parseDate(later)
	if !ok {
		return false
	}
	return lt.Sub(et) <= gap
}
