package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/festy23/dora_collector/internal/config"
	"github.com/festy23/dora_collector/internal/database/database"
	deploymentModel "github.com/festy23/dora_collector/internal/deployment/model"
	"github.com/festy23/dora_collector/internal/github"
	registryModel "github.com/festy23/dora_collector/internal/registry/model"
)

var testNow = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) DeploymentsPage(
	ctx context.Context,
	token, org string,
	environments []string,
	cursor *string,
) (github.Page[github.DeploymentRepository], error) {
	args := m.Called(ctx, token, org, environments, cursor)
	return args.Get(0).(github.Page[github.DeploymentRepository]), args.Error(1)
}

func (m *mockAPI) RepositoryTeams(ctx context.Context, token, owner, name string) (string, error) {
	args := m.Called(ctx, token, owner, name)
	return args.String(0), args.Error(1)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type mockStatistics struct {
	mock.Mock
}

func (m *mockStatistics) RecomputeDaily(ctx context.Context, db *gorm.DB) (int, error) {
	args := m.Called(ctx, db)
	return args.Int(0), args.Error(1)
}

func (m *mockStatistics) ReportCommitCorrelation(ctx context.Context, db *gorm.DB) {
	m.Called(ctx, db)
}

func (m *mockStatistics) ReportIncidentCorrelation(ctx context.Context, db *gorm.DB) {
	m.Called(ctx, db)
}

// quietStatistics accepts every post-commit call.
func quietStatistics() *mockStatistics {
	stats := &mockStatistics{}
	stats.On("RecomputeDaily", mock.Anything, mock.Anything).Return(1, nil)
	stats.On("ReportCommitCorrelation", mock.Anything, mock.Anything).Return()
	stats.On("ReportIncidentCorrelation", mock.Anything, mock.Anything).Return()
	return stats
}

// testStore is a temp-file SQLite store handing out a fresh connection per Connect.
type testStore struct {
	path     string
	connects atomic.Int32
	// onOpen, when set, is applied to every connection before it is returned.
	onOpen func(db *gorm.DB)
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	s := &testStore{path: filepath.Join(t.TempDir(), "dora.db")}

	db := s.open(t)
	require.NoError(t, db.AutoMigrate(&deploymentModel.Deployment{}, &registryModel.Repository{}))
	require.NoError(t, database.Close(db))
	return s
}

func (s *testStore) open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func (s *testStore) connector(t *testing.T) database.Connector {
	return database.ConnectorFunc(func(context.Context) (*gorm.DB, error) {
		s.connects.Add(1)
		db := s.open(t)
		if s.onOpen != nil {
			s.onOpen(db)
		}
		return db, nil
	})
}

func (s *testStore) deployments(t *testing.T) []deploymentModel.Deployment {
	t.Helper()
	var rows []deploymentModel.Deployment
	require.NoError(t, s.open(t).Order("deployment_id").Find(&rows).Error)
	return rows
}

func (s *testStore) registry(t *testing.T) []registryModel.Repository {
	t.Helper()
	var rows []registryModel.Repository
	require.NoError(t, s.open(t).Order("name").Find(&rows).Error)
	return rows
}

// failNthCreate makes the nth insert into table fail inside gorm.
func failNthCreate(table string, n int) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		calls := 0
		_ = db.Callback().Create().Before("gorm:create").Register("test:fail_nth", func(tx *gorm.DB) {
			if tx.Statement.Table != table {
				return
			}
			calls++
			if calls == n {
				_ = tx.AddError(errors.New("simulated write failure"))
			}
		})
	}
}

func newTestService(t *testing.T, api *mockAPI, tokens *mockTokens, store *testStore, stats *mockStatistics) *service {
	t.Helper()
	cfg := config.GitHubConfig{Org: "acme"}
	svc := New(cfg, api, tokens, store.connector(t), stats, zap.NewNop().Sugar()).(*service)
	svc.now = func() time.Time { return testNow }
	svc.collector.now = func() time.Time { return testNow }
	return svc
}

func deployment(id, repo, status string, createdAt time.Time) deploymentModel.Deployment {
	return deploymentModel.Deployment{
		DeploymentID: id,
		Repository:   repo,
		Environment:  "production",
		CommitSHA:    "sha-" + id,
		CreatedAt:    createdAt,
		Creator:      "octocat",
		Status:       status,
	}
}

func ptr[T any](v T) *T { return &v }
