package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"calldesk_backend/internal/analysis/repository"
	"calldesk_backend/internal/events"
	"calldesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeJobReader struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]repository.Job
}

func newFakeJobReader() *fakeJobReader {
	return &fakeJobReader{jobs: make(map[uuid.UUID]repository.Job)}
}

func (f *fakeJobReader) GetByID(_ context.Context, id uuid.UUID) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return repository.Job{}, repository.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobReader) ListProcessing(context.Context) ([]repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Job, 0)
	for _, job := range f.jobs {
		if !job.Status.Terminal() {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeJobReader) put(job repository.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
}

func (f *fakeJobReader) setStatus(id uuid.UUID, status repository.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.Status = status
	f.jobs[id] = job
}

type countingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *countingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *countingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *countingBus) Subscribe(string, events.Handler) {}

func (b *countingBus) finished() []events.AnalysisJobFinished {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.AnalysisJobFinished, 0)
	for _, e := range b.events {
		if fin, ok := e.(events.AnalysisJobFinished); ok {
			out = append(out, fin)
		}
	}
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPollerEmitsFinishedExactlyOnce(t *testing.T) {
	reader := newFakeJobReader()
	bus := &countingBus{}
	p := New(reader, bus, logger.New("development"), 10*time.Millisecond)

	job := repository.Job{
		ID:          uuid.New(),
		RecordingID: uuid.New(),
		CompanyID:   uuid.New(),
		Status:      repository.StatusProcessing,
	}
	reader.put(job)
	p.Watch(job.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// Stays processing: nothing published.
	time.Sleep(50 * time.Millisecond)
	if len(bus.finished()) != 0 {
		t.Fatal("no event may fire while the job is processing")
	}

	// Worker finishes out of process.
	reader.setStatus(job.ID, repository.StatusCompleted)
	waitFor(t, 2*time.Second, func() bool { return len(bus.finished()) == 1 })

	fin := bus.finished()[0]
	if fin.JobID != job.ID || fin.Status != string(repository.StatusCompleted) {
		t.Fatalf("unexpected event %+v", fin)
	}

	// Several more ticks must not re-publish.
	time.Sleep(100 * time.Millisecond)
	if len(bus.finished()) != 1 {
		t.Fatalf("terminal transition must publish exactly once, got %d", len(bus.finished()))
	}
	if p.Watching() != 0 {
		t.Fatal("finished job must be dropped from the registry")
	}
}

func TestPollerSeedsFromStore(t *testing.T) {
	reader := newFakeJobReader()
	bus := &countingBus{}

	inflight := repository.Job{ID: uuid.New(), RecordingID: uuid.New(), CompanyID: uuid.New(), Status: repository.StatusProcessing}
	done := repository.Job{ID: uuid.New(), RecordingID: uuid.New(), CompanyID: uuid.New(), Status: repository.StatusCompleted}
	reader.put(inflight)
	reader.put(done)

	p := New(reader, bus, logger.New("development"), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, 2*time.Second, func() bool { return p.Watching() == 1 })

	reader.setStatus(inflight.ID, repository.StatusFailed)
	waitFor(t, 2*time.Second, func() bool { return len(bus.finished()) == 1 })

	if bus.finished()[0].Status != string(repository.StatusFailed) {
		t.Fatalf("expected failed status, got %s", bus.finished()[0].Status)
	}
}

func TestPollerDiscoversJobsQueuedWhileRunning(t *testing.T) {
	reader := newFakeJobReader()
	bus := &countingBus{}
	p := New(reader, bus, logger.New("development"), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// Submitted by another process after the loop started: no Watch call, no
	// event on this bus. The per-tick store refresh must still find it.
	job := repository.Job{ID: uuid.New(), RecordingID: uuid.New(), CompanyID: uuid.New(), Status: repository.StatusProcessing}
	time.Sleep(30 * time.Millisecond)
	reader.put(job)

	waitFor(t, 2*time.Second, func() bool { return p.Watching() == 1 })

	reader.setStatus(job.ID, repository.StatusCompleted)
	waitFor(t, 2*time.Second, func() bool { return len(bus.finished()) == 1 })

	time.Sleep(100 * time.Millisecond)
	if len(bus.finished()) != 1 {
		t.Fatalf("terminal transition must publish exactly once, got %d", len(bus.finished()))
	}
}

func TestWatchIsIdempotent(t *testing.T) {
	reader := newFakeJobReader()
	p := New(reader, &countingBus{}, logger.New("development"), time.Minute)

	id := uuid.New()
	p.Watch(id)
	p.Watch(id)
	if p.Watching() != 1 {
		t.Fatalf("expected one watched id, got %d", p.Watching())
	}
}
