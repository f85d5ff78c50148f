// ABOUTME: Tests for mDNS discovery
// ABOUTME: Checks TXT records and service entry parsing
package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManagerDefaults(t *testing.T) {
	mgr := NewManager(Config{
		ServiceName: "Living Room",
		Port:        8928,
		ServerID:    "abc",
		Version:     "0.3.0",
	})
	defer mgr.Stop()

	txt := mgr.TXT()
	expected := []string{"path=/soundscape", "id=abc", "version=0.3.0"}
	if len(txt) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, txt)
	}
	for i := range expected {
		if txt[i] != expected[i] {
			t.Errorf("txt %d: expected %s, got %s", i, expected[i], txt[i])
		}
	}
}

func TestServerFromEntry(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "Living Room." + ServiceType + ".local.",
		Host:       "livingroom.local.",
		AddrV4:     net.ParseIP("192.168.1.20"),
		Port:       8928,
		InfoFields: []string{"path=/ws", "id=xyz", "version=1.0", "junk"},
	}

	info := serverFromEntry(entry)
	if info.Name != "Living Room" {
		t.Errorf("expected trimmed name, got %q", info.Name)
	}
	if info.Addr() != "192.168.1.20:8928" {
		t.Errorf("unexpected address: %s", info.Addr())
	}
	if info.Path != "/ws" || info.ID != "xyz" || info.Version != "1.0" {
		t.Errorf("TXT fields not parsed: %+v", info)
	}

	entry.AddrV4 = nil
	entry.InfoFields = nil
	info = serverFromEntry(entry)
	if info.Host != "livingroom.local" {
		t.Errorf("expected host fallback, got %q", info.Host)
	}
	if info.Path != "/soundscape" {
		t.Errorf("expected default path, got %q", info.Path)
	}
}
