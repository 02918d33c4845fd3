package app

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/config"
	"github.com/huereka/huereka/internal/manager"
	"github.com/huereka/huereka/internal/transport"
)

// LinkService owns one link per controller port. Managers that share a
// port share the link, so their batches are serialized on one writer, and
// one bank, so they register in strip order.
type LinkService struct {
	links map[string]*transport.Link
	banks map[string]*manager.Bank
}

// LinkStatus is reported by the health endpoint.
type LinkStatus struct {
	Port       string `json:"port"`
	Generation uint64 `json:"generation"`
	BytesSent  uint64 `json:"bytes_sent"`
	Failures   uint64 `json:"failures"`
}

// NewLinkService creates links for every distinct manager port. The first
// manager on a port decides its baud rate and queue size.
func NewLinkService(managers []config.ManagerConfig) *LinkService {
	s := &LinkService{
		links: make(map[string]*transport.Link),
		banks: make(map[string]*manager.Bank),
	}
	for _, m := range managers {
		if _, ok := s.links[m.Port]; ok {
			continue
		}
		l := transport.NewLink(
			transport.Dialer(m.Port, m.Baud, m.DialTimeout.Duration()),
			transport.LinkConfig{Name: m.Port, Baud: m.Baud, Queue: m.Queue},
		)
		s.links[m.Port] = l
		s.banks[m.Port] = manager.NewBank(l)
	}
	return s
}

// Bank returns the strip bank for port, or nil.
func (s *LinkService) Bank(port string) *manager.Bank {
	return s.banks[port]
}

// Link returns the link for port, or nil.
func (s *LinkService) Link(port string) *transport.Link {
	return s.links[port]
}

// Start runs every link writer until ctx is done.
func (s *LinkService) Start(ctx context.Context, wg *sync.WaitGroup) {
	for port, l := range s.links {
		wg.Add(1)
		go func(port string, l *transport.Link) {
			defer wg.Done()
			if err := l.Run(ctx); err != nil {
				log.Error().Err(err).Str("port", port).Msg("Link writer error")
			}
		}(port, l)
	}
}

// Status reports every link ordered by port.
func (s *LinkService) Status() []LinkStatus {
	out := make([]LinkStatus, 0, len(s.links))
	for port, l := range s.links {
		out = append(out, LinkStatus{
			Port:       port,
			Generation: l.Generation(),
			BytesSent:  l.BytesSent(),
			Failures:   l.Failures(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// Close stops every link.
func (s *LinkService) Close() {
	for _, l := range s.links {
		l.Close()
	}
}
