// ABOUTME: Tests for mDNS discovery
// ABOUTME: Covers manager lifecycle and parsing of browse results
package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"

	"github.com/Resonate-Protocol/whisperprep/internal/version"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "studio", Port: 8927})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}

	mgr.Stop()
	select {
	case <-mgr.ctx.Done():
	default:
		t.Error("Stop should cancel the manager context")
	}
}

func TestServerFromEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  ServerInfo
		ok    bool
	}{
		{
			name: "whisperprep server",
			entry: &mdns.ServiceEntry{
				Name:       "studio._whisperprep._tcp.local.",
				AddrV4:     net.IPv4(192, 168, 1, 20),
				Port:       8927,
				InfoFields: []string{"path=/v1", "version=1.2.3"},
			},
			want: ServerInfo{Name: "studio", Host: "192.168.1.20", Port: 8927, Version: "1.2.3"},
			ok:   true,
		},
		{
			name: "other service",
			entry: &mdns.ServiceEntry{
				Name:   "printer._ipp._tcp.local.",
				AddrV4: net.IPv4(192, 168, 1, 30),
				Port:   631,
			},
		},
		{
			name:  "no address",
			entry: &mdns.ServiceEntry{Name: "studio._whisperprep._tcp.local."},
		},
		{
			name: "nil entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := serverFromEntry(tt.entry)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestServerInfoURL(t *testing.T) {
	info := ServerInfo{Host: "10.0.0.5", Port: 8927}
	if got := info.URL(); got != "http://10.0.0.5:8927" {
		t.Errorf("URL() = %s", got)
	}
}

func TestTXTRecords(t *testing.T) {
	records := txtRecords()
	if len(records) != 2 || records[0] != "path=/v1" || records[1] != "version="+version.Version {
		t.Errorf("records = %v", records)
	}
}
