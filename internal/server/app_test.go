package server

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/blob"
	"github.com/dmitrijs2005/gophtasks/internal/server/config"
	"github.com/dmitrijs2005/gophtasks/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeManager struct {
	repomanager.RepositoryManager
	migrateErr error
	migrated   bool
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrated = true
	return m.migrateErr
}

func withSeams(t *testing.T, m *fakeManager) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	origOpen, origMgr := openDB, newRepositoryManager
	t.Cleanup(func() {
		openDB, newRepositoryManager = origOpen, origMgr
		_ = db.Close()
	})
	openDB = func(string) (*sql.DB, error) { return db, nil }
	newRepositoryManager = func() repomanager.RepositoryManager { return m }
	return mock
}

func testConfig(t *testing.T) *config.Config {
	var c config.Config
	c.LoadDefaults()
	c.StorageRoot = filepath.Join(t.TempDir(), "storage")
	return &c
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestNewApp_WiresFSStore(t *testing.T) {
	m := &fakeManager{}
	withSeams(t, m)

	app, err := NewApp(context.Background(), testConfig(t), logging.Nop{})
	require.NoError(t, err)
	assert.True(t, m.migrated)
	assert.IsType(t, &blob.FSStore{}, app.store)
	assert.NotNil(t, app.tasks)
}

func TestNewApp_MigrationFailure(t *testing.T) {
	withSeams(t, &fakeManager{migrateErr: errors.New("dirty")})

	_, err := NewApp(context.Background(), testConfig(t), logging.Nop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations")
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.StorageBackend = "tape"

	_, err := NewApp(context.Background(), c, logging.Nop{})
	require.Error(t, err)
}

func TestNewBlobStore(t *testing.T) {
	c := testConfig(t)

	c.StorageBackend = config.StorageMemory
	s, err := newBlobStore(context.Background(), c)
	require.NoError(t, err)
	assert.IsType(t, &blob.MemoryStore{}, s)

	c.StorageBackend = config.StorageS3
	orig := newS3Store
	t.Cleanup(func() { newS3Store = orig })
	newS3Store = func(context.Context, blob.S3Options) (*blob.S3Store, error) {
		return nil, errors.New("no credentials")
	}
	_, err = newBlobStore(context.Background(), c)
	assert.EqualError(t, err, "no credentials")
}

func TestRun_StopsOnCancel(t *testing.T) {
	mock := withSeams(t, &fakeManager{})
	mock.ExpectPing()
	mock.ExpectClose()

	c := testConfig(t)
	c.StorageBackend = config.StorageMemory
	c.EndpointAddrHTTP = freeAddr(t)
	c.EndpointAddrGRPC = freeAddr(t)

	app, err := NewApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
