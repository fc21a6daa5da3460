package thread

import (
	"fmt"
	"strings"
)

// condense merges maximal runs of consecutive same-sender messages into
// turns. Senders get thread-local labels (user0, user1, ...) in first-seen
// order; labels are never shared across threads. Also returns the number of
// distinct senders in the thread.
func condense(t Thread) (turns []Turn, participants int) {
	labels := make(map[int64]string)

	for i := 0; i < len(t.Messages); {
		sender := t.Messages[i].SenderID
		if _, ok := labels[sender]; !ok {
			labels[sender] = fmt.Sprintf("user%d", len(labels))
		}

		texts := []string{t.Messages[i].Text}
		j := i + 1
		for j < len(t.Messages) && t.Messages[j].SenderID == sender {
			texts = append(texts, t.Messages[j].Text)
			j++
		}

		turns = append(turns, Turn{
			User: labels[sender],
			Text: strings.Join(texts, "\n"),
		})
		i = j
	}

	return turns, len(labels)
}
