package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MimoJanra/UptimeGuard/internal/checker"
	"github.com/MimoJanra/UptimeGuard/internal/models"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeProbes scripts probe results. Liveness is reachable unless the URL is
// listed in down.
type fakeProbes struct {
	mu sync.Mutex

	down      map[string]bool
	latency   int
	days      int
	certErr   error
	expiry    string
	expiryErr error
	origin    checker.OriginResult
	originErr error

	panicURL  string
	block     chan struct{}
	blockCtx  bool
	inFlight  int
	maxFlight int
	calls     map[string]int
}

func newFakeProbes() *fakeProbes {
	return &fakeProbes{
		down:    map[string]bool{},
		latency: 120,
		days:    90,
		expiry:  "2026-08-13T04:00:00Z",
		origin:  checker.OriginResult{IPAddress: "93.184.216.34", Hosting: "Edgecast Inc."},
		calls:   map[string]int{},
	}
}

func (f *fakeProbes) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeProbes) setDays(d int) {
	f.mu.Lock()
	f.days = d
	f.mu.Unlock()
}

func (f *fakeProbes) setDown(url string, down bool) {
	f.mu.Lock()
	f.down[url] = down
	f.mu.Unlock()
}

func (f *fakeProbes) Liveness(ctx context.Context, url string) checker.LivenessResult {
	f.mu.Lock()
	f.calls[checker.ProbeLiveness]++
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	block, blockCtx, panicURL, down, latency := f.block, f.blockCtx, f.panicURL, f.down[url], f.latency
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if url == panicURL {
		panic("liveness exploded")
	}
	if block != nil {
		<-block
	}
	if blockCtx {
		<-ctx.Done()
		return checker.LivenessResult{Outcome: "timeout", Err: ctx.Err().Error()}
	}
	if down {
		return checker.LivenessResult{Outcome: "timeout", Err: "context deadline exceeded"}
	}
	return checker.LivenessResult{Reachable: true, StatusCode: 200, LatencyMS: latency, Outcome: "2xx"}
}

func (f *fakeProbes) Certificate(context.Context, string) (checker.CertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[checker.ProbeCertificate]++
	if f.certErr != nil {
		return checker.CertResult{}, f.certErr
	}
	return checker.CertResult{
		Valid:         f.days > 0,
		DaysRemaining: f.days,
		ValidTo:       t0.Add(time.Duration(f.days) * 24 * time.Hour).Format(time.RFC3339),
	}, nil
}

func (f *fakeProbes) DomainRegistration(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[checker.ProbeRegistration]++
	return f.expiry, f.expiryErr
}

func (f *fakeProbes) NetworkOrigin(context.Context, string) (checker.OriginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[checker.ProbeOrigin]++
	return f.origin, f.originErr
}

// fakeStore keeps targets in memory and applies change sets like a real
// backend would.
type fakeStore struct {
	mu         sync.Mutex
	targets    map[string]models.Target
	updates    map[string][]models.TargetChanges
	failUpdate map[string]error
	findErr    error
}

func newFakeStore(targets ...models.Target) *fakeStore {
	s := &fakeStore{
		targets:    map[string]models.Target{},
		updates:    map[string][]models.TargetChanges{},
		failUpdate: map[string]error{},
	}
	for _, t := range targets {
		s.targets[t.ID] = t
	}
	return s
}

func (s *fakeStore) FindAll(context.Context) ([]models.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := make([]models.Target, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdateByID(_ context.Context, id string, c models.TargetChanges) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failUpdate[id]; err != nil {
		return err
	}
	t, ok := s.targets[id]
	if !ok {
		return errors.New("not found")
	}
	s.targets[id] = applyChanges(t, c)
	s.updates[id] = append(s.updates[id], c)
	return nil
}

func (s *fakeStore) get(id string) models.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets[id].Clone()
}

func (s *fakeStore) updateCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates[id])
}

func applyChanges(t models.Target, c models.TargetChanges) models.Target {
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.ResponseTimeMS != nil {
		t.ResponseTimeMS = *c.ResponseTimeMS
	}
	if c.Certificate != nil {
		cert := *c.Certificate
		t.Certificate = &cert
	}
	if c.DomainExpiry != nil {
		t.DomainExpiry = *c.DomainExpiry
	}
	if c.IPAddress != nil {
		t.IPAddress = *c.IPAddress
	}
	if c.Hosting != nil {
		t.Hosting = *c.Hosting
	}
	if c.LastChecked != nil {
		t.LastChecked = *c.LastChecked
	}
	return t
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
	reject bool
}

func (n *fakeNotifier) Dispatch(_ context.Context, a models.Alert) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return !n.reject
}

func (n *fakeNotifier) kinds() []models.AlertKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]models.AlertKind, 0, len(n.alerts))
	for _, a := range n.alerts {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

func target(id string, status models.Status) models.Target {
	return models.Target{ID: id, URL: "https://" + id + ".example.com", Status: status, CreatedAt: t0}
}
