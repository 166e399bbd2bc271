package alias

import (
	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/wa"
)

// Candidate is a mapping observed in fetched data but not yet applied.
type Candidate struct {
	Alias     string
	Canonical string
}

// FromMessage extracts a mapping from a message whose conversation key is an
// alias. Fields are checked in priority order: phone-number hint, alias
// field, participant, key participant, user. Own messages only trust the
// alias field, since the other hints describe the sender.
func FromMessage(msg wa.Message) (Candidate, bool) {
	alias := jid.Bare(msg.Key.RemoteJID)
	if !jid.IsAlias(alias) {
		return Candidate{}, false
	}
	fields := []string{
		msg.SenderPN, msg.Key.SenderPN,
		msg.RemoteJIDAlt, msg.Key.RemoteJIDAlt,
		msg.Participant,
		msg.Key.Participant,
		msg.User,
	}
	if msg.Key.FromMe {
		fields = []string{msg.RemoteJIDAlt, msg.Key.RemoteJIDAlt}
	}
	for _, f := range fields {
		if phone, ok := jid.AsPhone(f); ok {
			return Candidate{Alias: alias, Canonical: phone}, true
		}
	}
	return Candidate{}, false
}

// FromContact extracts a mapping from a directory record that carries both
// an alias and a phone-addressed identifier.
func FromContact(c wa.Contact) (Candidate, bool) {
	return pair(c.ID, c.AltID)
}

// FromChat extracts a mapping from a raw chat row, falling back to its last
// message.
func FromChat(c wa.Chat) (Candidate, bool) {
	if cand, ok := pair(c.ID, c.AltID); ok {
		return cand, true
	}
	if c.LastMessage != nil {
		return FromMessage(*c.LastMessage)
	}
	return Candidate{}, false
}

// Scan mines the first limit messages (newest first) and returns at most one
// candidate per alias, the most recent one.
func Scan(msgs []wa.Message, limit int) []Candidate {
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	seen := make(map[string]bool)
	var out []Candidate
	for _, m := range msgs {
		cand, ok := FromMessage(m)
		if !ok || seen[cand.Alias] {
			continue
		}
		seen[cand.Alias] = true
		out = append(out, cand)
	}
	return out
}

func pair(a, b string) (Candidate, bool) {
	switch {
	case jid.IsAlias(a):
		if phone, ok := jid.AsPhone(b); ok {
			return Candidate{Alias: jid.Bare(a), Canonical: phone}, true
		}
	case jid.IsAlias(b):
		if phone, ok := jid.AsPhone(a); ok {
			return Candidate{Alias: jid.Bare(b), Canonical: phone}, true
		}
	}
	return Candidate{}, false
}
