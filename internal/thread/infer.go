package thread

// inferReplies fills missing reply links with three heuristic passes, in
// fixed order. Each pass completes before the next starts; later passes see
// links written by earlier ones. Explicit links are never touched and an
// inferred link, once set, is final. Returns per-pass link counts.
func inferReplies(msgs []Message, available map[int64]bool, opts Options) (sameUser, aba, proximity int) {
	// Pass 1: chain consecutive messages from the same sender.
	for i := 0; i+1 < len(msgs); i++ {
		a := &msgs[i]
		b := &msgs[i+1]
		if a.SenderID != b.SenderID || b.Linked() {
			continue
		}
		if available[a.ID] {
			b.InferredReplyID = a.ID
			b.Reason = ReasonSameUser
			sameUser++
		}
	}

	// Pass 2: A-B-A. When M2 explicitly replied to M1 and M3 comes from M1's
	// sender, M3 is almost certainly answering M2. Only the original explicit
	// link on M2 counts here, not anything pass 1 inferred.
	for i := 0; i+2 < len(msgs); i++ {
		m1 := &msgs[i]
		m2 := &msgs[i+1]
		m3 := &msgs[i+2]
		if m1.SenderID != m3.SenderID || m1.SenderID == m2.SenderID {
			continue
		}
		if m2.ExplicitReplyID != m1.ID || m3.Linked() {
			continue
		}
		if available[m2.ID] {
			m3.InferredReplyID = m2.ID
			m3.Reason = ReasonABA
			aba++
		}
	}

	// Pass 3: time/id proximity. Adjacent messages from different senders
	// that land close together in both time and id are treated as replies.
	// An unparsable timestamp makes the pair "not close", never an error.
	for i := 0; i+1 < len(msgs); i++ {
		prev := &msgs[i]
		curr := &msgs[i+1]
		if prev.SenderID == curr.SenderID || curr.Linked() {
			continue
		}

		closeInTime := false
		if pt, ok := parseDate(prev.Date); ok {
			if ct, ok := parseDate(curr.Date); ok {
				diff := ct.Sub(pt)
				closeInTime = diff > 0 && diff <= opts.TimeThreshold
			}
		}
		closeInID := curr.ID-prev.ID > 0 && curr.ID-prev.ID <= opts.IDThreshold

		if closeInTime && closeInID && available[prev.ID] {
			curr.InferredReplyID = prev.ID
			curr.Reason = ReasonTimeProximity
			proximity++
		}
	}

	return sameUser, aba, proximity
}
