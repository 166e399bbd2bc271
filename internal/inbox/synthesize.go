package inbox

import (
	"sort"

	"github.com/matheus3301/wppbridge/internal/alias"
	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/names"
	"github.com/matheus3301/wppbridge/internal/wa"
)

// Input is everything fetched for one inbox refresh.
type Input struct {
	Contacts []wa.Contact
	Chats    []wa.Chat
	Messages []wa.Message
}

// Extract collects alias candidates in order of trust: directory records,
// chat rows, then incoming messages of alias conversations.
func Extract(in Input) []alias.Candidate {
	var out []alias.Candidate
	for _, c := range in.Contacts {
		if cand, ok := alias.FromContact(c); ok {
			out = append(out, cand)
		}
	}
	for _, c := range in.Chats {
		if cand, ok := alias.FromChat(c); ok {
			out = append(out, cand)
		}
	}
	for _, m := range in.Messages {
		if m.Key.FromMe || !jid.IsAlias(m.Key.RemoteJID) {
			continue
		}
		if cand, ok := alias.FromMessage(m); ok {
			out = append(out, cand)
		}
	}
	return out
}

// DiscoveredNames returns the push names of incoming direct messages keyed
// by conversation.
func DiscoveredNames(msgs []wa.Message) map[string]string {
	out := make(map[string]string)
	for _, m := range msgs {
		id := m.Key.RemoteJID
		if m.Key.FromMe || m.PushName == "" || jid.IsGroup(id) || jid.IsPseudo(id) {
			continue
		}
		if _, ok := out[id]; !ok {
			out[id] = m.PushName
		}
	}
	return out
}

// Canonical returns the phone identifier learned for an alias, or the
// device-free id itself. Phone ids always come back on the default server.
func Canonical(id string, m jid.Mapping) string {
	id = jid.Bare(id)
	if jid.IsAlias(id) && m != nil {
		if v, ok := m.Lookup(id); ok && jid.IsPhone(v) {
			id = jid.Bare(v)
		}
	}
	if jid.IsPhone(id) {
		return jid.PhoneJID(jid.Digits(id))
	}
	return id
}

// mergeKey is the identity one inbox entry stands for.
func mergeKey(canonical string) string {
	_, server := jid.Split(canonical)
	return jid.Normalize(canonical) + "@" + server
}

type entry struct {
	conv     wa.Conversation
	realName bool
	hasLast  bool
}

// absorb merges o into e: unread adds up, the last message moves only when
// o is strictly newer, and the name upgrades only from non-real to real.
func (e *entry) absorb(o *entry) {
	e.conv.UnreadCount += o.conv.UnreadCount
	if o.conv.Timestamp > e.conv.Timestamp {
		e.conv.Timestamp = o.conv.Timestamp
		if o.hasLast {
			e.conv.LastMessage = o.conv.LastMessage
			e.conv.LastMessageType = o.conv.LastMessageType
			e.hasLast = true
		}
	}
	if !e.realName && o.realName {
		e.conv.Name = o.conv.Name
		e.realName = true
	}
}

// Synthesize builds the inbox: exactly one conversation per canonical
// identifier, pseudo-conversations dropped, newest first. It has no side
// effects; m must be a stable snapshot.
func Synthesize(in Input, m jid.Mapping, namer names.Namer) []wa.Conversation {
	// Working set in observation order.
	var ids []string
	seen := make(map[string]bool)
	observe := func(id string) {
		id = jid.Bare(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, c := range in.Chats {
		observe(c.ID)
	}
	for _, msg := range in.Messages {
		observe(msg.Key.RemoteJID)
	}

	counted := make(map[int]bool)
	byKey := make(map[string]*entry)
	var order []string

	for _, id := range ids {
		canonical := Canonical(id, m)
		if jid.IsPseudo(canonical) {
			continue
		}
		chatIdx := bestChat(in.Chats, id, m)
		last := newestMessage(in.Messages, id, m)

		var chat wa.Chat
		unread := 0
		if chatIdx >= 0 {
			chat = in.Chats[chatIdx]
			if !counted[chatIdx] {
				counted[chatIdx] = true
				unread = chat.UnreadCount
			}
			if chat.LastMessage != nil && (last == nil || chat.LastMessage.Timestamp > last.Timestamp) {
				last = chat.LastMessage
			}
		}
		ts := chat.UpdatedAt
		if last != nil && last.Timestamp > ts {
			ts = last.Timestamp
		}

		var pushNames []string
		if last != nil && !last.Key.FromMe && last.PushName != "" && !jid.IsGroup(id) {
			pushNames = append(pushNames, last.PushName)
		}
		name := namer.Resolve(id, chat.Name, pushNames...)

		cand := &entry{conv: wa.Conversation{
			ID:          canonical,
			Name:        name,
			UnreadCount: unread,
			Timestamp:   ts,
			IsGroup:     jid.IsGroup(canonical),
		}, realName: names.IsRealName(name)}
		if last != nil {
			cand.conv.LastMessage = wa.Preview(last.Content)
			cand.conv.LastMessageType = last.Content.Type
			cand.hasLast = true
		}

		key := mergeKey(canonical)
		if e, ok := byKey[key]; ok {
			e.absorb(cand)
			continue
		}
		byKey[key] = cand
		order = append(order, key)
	}

	// Entries keyed apart can still be equivalent through m, e.g. two phones
	// that once mapped to the same alias.
	var kept []*entry
	for _, k := range order {
		e := byKey[k]
		if into := equivalentEntry(kept, e, m); into != nil {
			into.absorb(e)
			continue
		}
		kept = append(kept, e)
	}

	out := make([]wa.Conversation, 0, len(kept))
	for _, e := range kept {
		out = append(out, e.conv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func equivalentEntry(kept []*entry, e *entry, m jid.Mapping) *entry {
	for _, k := range kept {
		if k.conv.IsGroup == e.conv.IsGroup && jid.Equivalent(k.conv.ID, e.conv.ID, m) {
			return k
		}
	}
	return nil
}

// bestChat returns the index of the chat row for id: the exact row if
// present, else the most recently updated equivalent row, else -1.
func bestChat(chats []wa.Chat, id string, m jid.Mapping) int {
	best := -1
	for i, c := range chats {
		if !jid.Equivalent(c.ID, id, m) {
			continue
		}
		if jid.Bare(c.ID) == id {
			return i
		}
		if best < 0 || c.UpdatedAt > chats[best].UpdatedAt {
			best = i
		}
	}
	return best
}

// newestMessage returns the newest message of the conversation id.
func newestMessage(msgs []wa.Message, id string, m jid.Mapping) *wa.Message {
	var best *wa.Message
	for i := range msgs {
		if !jid.Equivalent(msgs[i].Key.RemoteJID, id, m) {
			continue
		}
		if best == nil || msgs[i].Timestamp > best.Timestamp {
			best = &msgs[i]
		}
	}
	return best
}
