package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/dbx"
	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/blob"
	"github.com/dmitrijs2005/gophtasks/internal/server/config"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophtasks/internal/server/repositories/tasks"
)

// --- fake task repository ---

type fakeTasksRepo struct {
	mu    sync.Mutex
	rows  map[string]models.Task
	seq   int
	clock time.Time

	createErr error
	updateErr error
	deleteErr error
	listErr   error
}

func newFakeTasksRepo() *fakeTasksRepo {
	return &fakeTasksRepo{
		rows:  map[string]models.Task{},
		clock: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeTasksRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeTasksRepo) Create(_ context.Context, t *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	t.ID = fmt.Sprintf("t-%d", f.seq)
	t.CreatedAt = f.tick()
	t.UpdatedAt = t.CreatedAt
	f.rows[t.ID] = *t
	return nil
}

func (f *fakeTasksRepo) GetByID(_ context.Context, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (f *fakeTasksRepo) Update(_ context.Context, t *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.rows[t.ID]; !ok {
		return common.ErrorNotFound
	}
	t.UpdatedAt = f.tick()
	f.rows[t.ID] = *t
	return nil
}

func (f *fakeTasksRepo) ToggleStatus(_ context.Context, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	t.Status = t.Status.Toggled()
	t.UpdatedAt = f.tick()
	f.rows[id] = t
	return &t, nil
}

func (f *fakeTasksRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeTasksRepo) ListLatest(_ context.Context) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Task, 0, len(f.rows))
	for _, t := range f.rows {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// put stores a row directly, bypassing Create.
func (f *fakeTasksRepo) put(t models.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[t.ID] = t
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	tasks *fakeTasksRepo
}

func (m *fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository { return m.tasks }

// --- fake blob store ---

type fakeStore struct {
	*blob.MemoryStore

	putErr    error
	getErr    error
	existsErr error
	deleteErr error
	// dropPuts makes Put report success without keeping the object.
	dropPuts bool
	deleted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{MemoryStore: blob.NewMemoryStore()}
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, ct string) error {
	if s.putErr != nil {
		return s.putErr
	}
	if s.dropPuts {
		return nil
	}
	return s.MemoryStore.Put(ctx, key, data, ct)
}

func (s *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.MemoryStore.Exists(ctx, key)
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStore.Delete(ctx, key)
}

func (s *fakeStore) has(t *testing.T, key string) bool {
	t.Helper()
	ok, err := s.MemoryStore.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	return ok
}

// --- recording logger ---

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

func newRecLogger() *recLogger {
	return &recLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recLogger) Debug(_ context.Context, msg string, args ...any) { l.add("debug", msg, args) }
func (l *recLogger) Info(_ context.Context, msg string, args ...any)  { l.add("info", msg, args) }
func (l *recLogger) Warn(_ context.Context, msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recLogger) Error(_ context.Context, msg string, args ...any) { l.add("error", msg, args) }
func (l *recLogger) With(...any) logging.Logger                       { return l }

func (l *recLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range *l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// --- harness ---

var fixedNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	svc   *TaskService
	repo  *fakeTasksRepo
	store *fakeStore
	log   *recLogger
	db    *sql.DB
	mock  sqlmock.Sqlmock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &harness{
		repo:  newFakeTasksRepo(),
		store: newFakeStore(),
		log:   newRecLogger(),
		db:    db,
		mock:  mock,
	}
	cfg := &config.Config{MaxAttachmentSize: 10 << 20, TimeZone: "UTC"}
	h.svc = NewTaskService(db, &fakeRepoManager{tasks: h.repo}, h.store, cfg, h.log,
		WithClock(func() time.Time { return fixedNow }))
	return h
}

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

func pdfUpload(name string) *Upload {
	return &Upload{Filename: name, ContentType: "application/pdf", Data: samplePDF}
}

func validInput() TaskInput {
	return TaskInput{Title: "Write report", DueDate: "2025-06-20", Status: "ongoing", Priority: "medium"}
}
