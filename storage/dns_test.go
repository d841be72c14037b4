package storage

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/ruteri/diplomachain/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDNSServer serves records from zone on a local UDP port.
func startDNSServer(t *testing.T, records map[string][]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)

		q := r.Question[0]
		switch q.Qtype {
		case dns.TypeSOA:
			m.Answer = append(m.Answer, &dns.SOA{
				Hdr:    dns.RR_Header{Name: q.Name, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: 60},
				Ns:     "ns." + q.Name,
				Mbox:   "admin." + q.Name,
				Serial: 1,
			})
		case dns.TypeTXT:
			txt, ok := records[q.Name]
			if !ok {
				m.Rcode = dns.RcodeNameError
				break
			}
			m.Answer = append(m.Answer, &dns.TXT{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
				Txt: txt,
			})
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	server := &dns.Server{PacketConn: pc, Handler: mux, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = server.ActivateAndServe() }()
	t.Cleanup(func() { _ = server.Shutdown() })

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("DNS server did not start")
	}
	return pc.LocalAddr().String()
}

func TestDNSBackend_Fetch(t *testing.T) {
	addr := startDNSServer(t, map[string][]string{
		"localhost._diplomachain.example.org.": {"v=1", "registry=0x5FbDB2315678afecb367f032d93F642f64180aa3"},
		"sepolia._diplomachain.example.org.":   {"unrelated"},
	})

	backend, err := NewDNSBackend(addr, "example.org", time.Second, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, backend.Available(ctx))
	assert.Equal(t, "localhost._diplomachain.example.org.", backend.RecordName("localhost"))

	data, err := backend.Fetch(ctx, AddressKey("localhost"))
	require.NoError(t, err)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", string(data))

	_, err = backend.Fetch(ctx, AddressKey("sepolia"))
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)

	_, err = backend.Fetch(ctx, AddressKey("mainnet"))
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)

	_, err = backend.Fetch(ctx, "documents/abcd")
	require.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestDNSBackend_ReadOnly(t *testing.T) {
	backend, err := NewDNSBackend("127.0.0.1:53", "example.org", time.Second, discardLogger())
	require.NoError(t, err)

	err = backend.Store(context.Background(), AddressKey("localhost"), []byte("0x01"))
	require.ErrorIs(t, err, interfaces.ErrReadOnlyBackend)
}

func TestDNSBackend_FeedsAddressBook(t *testing.T) {
	addr := startDNSServer(t, map[string][]string{
		"localhost._diplomachain.example.org.": {"registry=0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"},
	})

	dnsBackend, err := NewDNSBackend(addr, "example.org", time.Second, discardLogger())
	require.NoError(t, err)
	fileBackend, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)

	// local overrides take precedence over published ones
	book := NewAddressBook(NewMultiStorageBackend([]interfaces.StorageBackend{fileBackend, dnsBackend}, discardLogger()), discardLogger())
	ctx := context.Background()

	got, ok, err := book.RegistryAddress(ctx, "localhost")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0", got.Hex())

	local, err := interfaces.ParseIdentity("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	require.NoError(t, err)
	require.NoError(t, book.SetRegistryAddress(ctx, "localhost", local))

	got, ok, err = book.RegistryAddress(ctx, "localhost")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, local, got)
}
