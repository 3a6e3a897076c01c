package sweep

import (
	"sort"

	"mailsweep/internal/model"
	"mailsweep/internal/util"
)

// GroupBySender partitions msgs by canonical sender email. Messages keep their
// input order inside a group; groups are ordered by descending size with ties
// in first-seen order. The display name comes from the first message seen.
func GroupBySender(msgs []*model.Message) []model.SenderGroup {
	index := make(map[string]int)
	var groups []model.SenderGroup
	for _, m := range msgs {
		if m == nil {
			continue
		}
		name, key := senderOf(m)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, model.SenderGroup{Name: name, Email: key})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Messages) > len(groups[j].Messages)
	})
	return groups
}

// senderOf returns the display name and canonical email of one message.
func senderOf(m *model.Message) (string, string) {
	name, email := util.ParseFrom(m.Headers.Get("From"))
	return name, util.CanonicalEmail(email)
}
