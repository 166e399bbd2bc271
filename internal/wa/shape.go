package wa

import "github.com/tidwall/gjson"

// shapeMatcher recognizes one envelope layout of a list response and
// extracts its records.
type shapeMatcher struct {
	name    string
	extract func(root gjson.Result) ([]gjson.Result, bool)
}

// listShapes is tried in order; the first structural match wins. Releases of
// the gateway have returned every one of these for the same endpoint.
var listShapes = []shapeMatcher{
	{"array", func(root gjson.Result) ([]gjson.Result, bool) {
		return arrayAt(root, "")
	}},
	{"messages", func(root gjson.Result) ([]gjson.Result, bool) {
		return arrayAt(root, "messages")
	}},
	{"messages.records", func(root gjson.Result) ([]gjson.Result, bool) {
		return arrayAt(root, "messages.records")
	}},
	{"records", func(root gjson.Result) ([]gjson.Result, bool) {
		return arrayAt(root, "records")
	}},
	{"data", func(root gjson.Result) ([]gjson.Result, bool) {
		return arrayAt(root, "data")
	}},
	{"data.records", func(root gjson.Result) ([]gjson.Result, bool) {
		return arrayAt(root, "data.records")
	}},
	{"chats", func(root gjson.Result) ([]gjson.Result, bool) {
		return arrayAt(root, "chats")
	}},
	{"contacts", func(root gjson.Result) ([]gjson.Result, bool) {
		return arrayAt(root, "contacts")
	}},
	{"messages.values", func(root gjson.Result) ([]gjson.Result, bool) {
		return objectValues(root.Get("messages"))
	}},
	{"values", func(root gjson.Result) ([]gjson.Result, bool) {
		if looksLikeRecord(root) {
			return nil, false
		}
		return objectValues(root)
	}},
	{"single", func(root gjson.Result) ([]gjson.Result, bool) {
		if !looksLikeRecord(root) {
			return nil, false
		}
		return []gjson.Result{root}, true
	}},
}

// DecodeList extracts the records of a list response. Unknown or invalid
// payloads yield an empty list rather than an error.
func DecodeList(body []byte) []gjson.Result {
	if !gjson.ValidBytes(body) {
		return nil
	}
	root := gjson.ParseBytes(body)
	for _, m := range listShapes {
		if items, ok := m.extract(root); ok {
			return items
		}
	}
	return nil
}

// ShapeOf names the envelope layout DecodeList would use; empty if none matches.
func ShapeOf(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	for _, m := range listShapes {
		if _, ok := m.extract(root); ok {
			return m.name
		}
	}
	return ""
}

// DecodeMessages extracts messages from any supported envelope.
func DecodeMessages(body []byte) []Message {
	items := DecodeList(body)
	out := make([]Message, 0, len(items))
	for _, it := range items {
		out = append(out, ParseMessage(it))
	}
	return out
}

// DecodeChats extracts raw chat rows from any supported envelope.
func DecodeChats(body []byte) []Chat {
	items := DecodeList(body)
	out := make([]Chat, 0, len(items))
	for _, it := range items {
		if c := ParseChat(it); c.ID != "" {
			out = append(out, c)
		}
	}
	return out
}

// DecodeContacts extracts directory entries from any supported envelope.
func DecodeContacts(body []byte) []Contact {
	items := DecodeList(body)
	out := make([]Contact, 0, len(items))
	for _, it := range items {
		if c := ParseContact(it); c.ID != "" {
			out = append(out, c)
		}
	}
	return out
}

func arrayAt(root gjson.Result, path string) ([]gjson.Result, bool) {
	v := root
	if path != "" {
		v = root.Get(path)
	}
	if !v.IsArray() {
		return nil, false
	}
	var out []gjson.Result
	for _, it := range v.Array() {
		if it.IsObject() {
			out = append(out, it)
		}
	}
	return out, true
}

// objectValues coerces a keyed object into a list when every value is itself
// an object.
func objectValues(v gjson.Result) ([]gjson.Result, bool) {
	if !v.IsObject() {
		return nil, false
	}
	var out []gjson.Result
	ok := true
	v.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			ok = false
			return false
		}
		out = append(out, value)
		return true
	})
	if !ok || len(out) == 0 {
		return nil, false
	}
	return out, true
}

func looksLikeRecord(v gjson.Result) bool {
	if !v.IsObject() {
		return false
	}
	for _, k := range []string{"key", "remoteJid", "id", "jid"} {
		if v.Get(k).Exists() {
			return true
		}
	}
	return false
}
