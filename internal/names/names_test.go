package names

import (
	"testing"

	"github.com/matheus3301/wppbridge/internal/jid"
	"github.com/matheus3301/wppbridge/internal/store"
	"github.com/matheus3301/wppbridge/internal/wa"
)

func TestIsRealName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Maria Silva", true},
		{"~Ana", true},
		{"Zé", true},
		{"A", false},
		{"", false},
		{"5551999998888", false},
		{"+55 (51) 99999-9999", false},
		{"12345@lid", false},
		{"5551999998888@s.whatsapp.net", false},
		{"Contato 0000000", false},
		{"me", false},
		{"Você", false},
		{"(you)", false},
		{"TÚ", false},
		{"Eu", false},
		{"Eunice", true},
	}
	for _, tt := range tests {
		if got := IsRealName(tt.name); got != tt.want {
			t.Errorf("IsRealName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"5551999999999@s.whatsapp.net", "(51) 99999-9999"},
		{"555133334444@s.whatsapp.net", "(51) 3333-4444"},
		{"5551999999999:12@s.whatsapp.net", "(51) 99999-9999"},
		{"14155550123@s.whatsapp.net", "14155550123"},
		{"12345@lid", "12345"},
		{"5551999999999@lid", "5551999999999"},
		{"120363000000@g.us", "120363000000"},
	}
	for _, tt := range tests {
		if got := FormatPhone(tt.id); got != tt.want {
			t.Errorf("FormatPhone(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestResolvePrecedence(t *testing.T) {
	const (
		alias = "12345@lid"
		phone = "5551999998888@s.whatsapp.net"
	)
	kv := store.NewMemKV()
	r := NewResolver(kv, jid.MapMapping{alias: phone, phone: alias}, nil)

	if got := r.Resolve(phone, ""); got != "(51) 99999-8888" {
		t.Errorf("empty tables: got %q", got)
	}
	if got := r.Resolve(phone, "", "me", "Broadcast Bia"); got != "Broadcast Bia" {
		t.Errorf("broadcast: got %q", got)
	}
	if got := r.Resolve(phone, "~Fallback Fe", "Broadcast Bia"); got != "Fallback Fe" {
		t.Errorf("fallback: got %q", got)
	}

	r.Discover(map[string]string{alias: "Discovered Di"})
	if got := r.Resolve(phone, "Fallback Fe"); got != "Discovered Di" {
		t.Errorf("discovered via counterpart: got %q", got)
	}

	r.UpdateDirectory([]wa.Contact{{ID: phone, PushName: "Directory Do"}})
	if got := r.Resolve(alias, "Fallback Fe"); got != "Directory Do" {
		t.Errorf("directory via counterpart: got %q", got)
	}

	if err := r.SetCustomName(alias, "Custom Cy"); err != nil {
		t.Fatal(err)
	}
	if got := r.Resolve(phone, ""); got != "Custom Cy" {
		t.Errorf("custom via counterpart: got %q", got)
	}
	if err := r.SetCustomName(phone, "Custom Raw"); err != nil {
		t.Fatal(err)
	}
	if got := r.Resolve(phone, ""); got != "Custom Raw" {
		t.Errorf("custom raw wins over counterpart: got %q", got)
	}
}

func TestResolveAliasFallsBackToMappedPhone(t *testing.T) {
	const (
		alias = "999@lid"
		phone = "5551999998888@s.whatsapp.net"
	)
	r := NewResolver(store.NewMemKV(), jid.MapMapping{alias: phone, phone: alias}, nil)
	if got := r.Resolve(alias, ""); got != "(51) 99999-8888" {
		t.Errorf("mapped alias: got %q, want the formatted phone", got)
	}
	if got := r.Resolve("777@lid", ""); got != "777" {
		t.Errorf("unmapped alias: got %q, want the local part", got)
	}
}

func TestCustomAndDiscoveredNamesPersist(t *testing.T) {
	kv := store.NewMemKV()
	r := NewResolver(kv, nil, nil)
	if err := r.SetCustomName("1@s.whatsapp.net", "Loja Centro"); err != nil {
		t.Fatal(err)
	}
	if n := r.Discover(map[string]string{"2@s.whatsapp.net": "Bruno", "3@s.whatsapp.net": "5551"}); n != 1 {
		t.Errorf("Discover() = %d, want 1", n)
	}

	reloaded := NewResolver(kv, nil, nil)
	if got := reloaded.CustomName("1@s.whatsapp.net"); got != "Loja Centro" {
		t.Errorf("custom after reload = %q", got)
	}
	if got := reloaded.Resolve("2@s.whatsapp.net", ""); got != "Bruno" {
		t.Errorf("discovered after reload = %q", got)
	}

	if err := reloaded.SetCustomName("1@s.whatsapp.net", ""); err != nil {
		t.Fatal(err)
	}
	if got := reloaded.CustomName("1@s.whatsapp.net"); got != "" {
		t.Errorf("custom after removal = %q", got)
	}
}

func TestDirectoryName(t *testing.T) {
	c := wa.Contact{VerifiedName: "5551", Name: "eu", PushName: "Carla"}
	if got := DirectoryName(c); got != "Carla" {
		t.Errorf("DirectoryName() = %q, want Carla", got)
	}
}
