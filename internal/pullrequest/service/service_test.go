package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/festy23/dora_collector/internal/apperr"
	"github.com/festy23/dora_collector/internal/config"
	"github.com/festy23/dora_collector/internal/database/database"
	"github.com/festy23/dora_collector/internal/github"
	pullrequestModel "github.com/festy23/dora_collector/internal/pullrequest/model"
)

var testNow = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) PullRequestsPage(
	ctx context.Context,
	token, org string,
	cursor *string,
) (github.Page[github.PullRequestRepository], error) {
	args := m.Called(ctx, token, org, cursor)
	return args.Get(0).(github.Page[github.PullRequestRepository]), args.Error(1)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) ReportCommitCorrelation(ctx context.Context, db *gorm.DB) {
	m.Called(ctx, db)
}

func quietReporter() *mockReporter {
	r := &mockReporter{}
	r.On("ReportCommitCorrelation", mock.Anything, mock.Anything).Return()
	return r
}

type testStore struct {
	path     string
	connects atomic.Int32
	onOpen   func(db *gorm.DB)
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	s := &testStore{path: filepath.Join(t.TempDir(), "dora.db")}
	db := s.open(t)
	require.NoError(t, db.AutoMigrate(&pullrequestModel.PullRequest{}))
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

func (s *testStore) rows(t *testing.T) []pullrequestModel.PullRequest {
	t.Helper()
	var rows []pullrequestModel.PullRequest
	require.NoError(t, s.open(t).Order("repository, pr_number").Find(&rows).Error)
	return rows
}

func newTestService(t *testing.T, source *mockSource, tokens *mockTokens, store *testStore, reporter *mockReporter) *service {
	t.Helper()
	cfg := config.GitHubConfig{Org: "acme", BaseBranch: "main", PRLookback: 48 * time.Hour}
	svc := New(cfg, source, tokens, store.connector(t), reporter, zap.NewNop().Sugar()).(*service)
	svc.now = func() time.Time { return testNow }
	svc.collector.now = func() time.Time { return testNow }
	return svc
}

func prNode(number int, title, base string, mergedAgo time.Duration) github.PullRequestNode {
	merged := testNow.Add(-mergedAgo)
	created := merged.Add(-time.Hour)
	return github.PullRequestNode{
		Number:      number,
		Title:       title,
		CreatedAt:   &created,
		MergedAt:    &merged,
		BaseRefName: base,
		MergeCommit: &github.GitObject{OID: "merge-" + title},
		Author:      &github.Actor{Login: "octocat"},
	}
}

func prPage(nodes ...github.PullRequestNode) github.Page[github.PullRequestRepository] {
	repo := github.PullRequestRepository{Name: "api", Owner: &github.Owner{Login: "acme"}}
	repo.PullRequests.Nodes = nodes
	return github.Page[github.PullRequestRepository]{Nodes: []github.PullRequestRepository{repo}}
}

func TestCollector_Filters(t *testing.T) {
	source := &mockSource{}
	noMerge := prNode(5, "unmerged", "main", 0)
	noMerge.MergedAt = nil
	source.On("PullRequestsPage", mock.Anything, "tok", "acme", (*string)(nil)).Return(prPage(
		prNode(1, "recent", "main", 10*time.Hour),
		prNode(2, "edge", "main", 48*time.Hour),
		prNode(3, "too-old", "main", 48*time.Hour+time.Second),
		prNode(4, "feature", "develop", time.Hour),
		noMerge,
	), nil).Once()

	c := NewCollector(source, config.GitHubConfig{Org: "acme", BaseBranch: "main", PRLookback: 48 * time.Hour}, zap.NewNop().Sugar())
	c.now = func() time.Time { return testNow }

	got, err := c.Collect(context.Background(), "tok")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].PRNumber)
	assert.Equal(t, 2, got[1].PRNumber)
	assert.Equal(t, "acme/api", got[0].Repository)
}

func TestNormalize(t *testing.T) {
	repo := github.PullRequestRepository{Name: "api", Owner: &github.Owner{Login: "acme"}}

	full := Normalize(repo, prNode(1, "title", "main", time.Hour))
	assert.Equal(t, "octocat", full.Author)
	require.NotNil(t, full.MergeCommitSHA)
	assert.Equal(t, "merge-title", *full.MergeCommitSHA)

	bare := prNode(2, "bare", "main", time.Hour)
	bare.Author = nil
	bare.MergeCommit = nil
	n := Normalize(repo, bare)
	assert.Equal(t, pullrequestModel.UnknownActor, n.Author)
	assert.Nil(t, n.MergeCommitSHA)
}

func TestService_RunScenarioTitleCorrection(t *testing.T) {
	store := newTestStore(t)
	source := &mockSource{}
	source.On("PullRequestsPage", mock.Anything, "tok", "acme", (*string)(nil)).
		Return(prPage(prNode(7, "Fix typo", "main", 10*time.Hour)), nil).Once()
	corrected := prNode(7, "Fix typo", "main", 10*time.Hour)
	corrected.Title = "Fix typo in README"
	source.On("PullRequestsPage", mock.Anything, "tok", "acme", (*string)(nil)).
		Return(prPage(corrected), nil).Once()

	tokens := &mockTokens{}
	tokens.On("Token", mock.Anything).Return("tok", nil)
	reporter := quietReporter()
	svc := newTestService(t, source, tokens, store, reporter)

	n, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Run(context.Background())
	require.NoError(t, err)

	rows := store.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "acme/api", rows[0].Repository)
	assert.Equal(t, 7, rows[0].PRNumber)
	assert.Equal(t, "Fix typo in README", rows[0].Title)
	reporter.AssertNumberOfCalls(t, "ReportCommitCorrelation", 2)
}

func TestService_StoreDropsUnstorable(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, &mockSource{}, &mockTokens{}, store, &mockReporter{})

	repo := github.PullRequestRepository{Name: "api", Owner: &github.Owner{Login: "acme"}}
	noSHA := Normalize(repo, prNode(1, "a", "main", time.Hour))
	noSHA.MergeCommitSHA = nil
	otherBranch := Normalize(repo, prNode(2, "b", "develop", time.Hour))

	require.NoError(t, svc.Store(context.Background(), []pullrequestModel.PullRequest{noSHA, otherBranch}))
	assert.Zero(t, store.connects.Load())
	assert.Empty(t, store.rows(t))
}

func TestService_StoreIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, &mockSource{}, &mockTokens{}, store, quietReporter())

	repo := github.PullRequestRepository{Name: "api", Owner: &github.Owner{Login: "acme"}}
	batch := []pullrequestModel.PullRequest{
		Normalize(repo, prNode(1, "a", "main", time.Hour)),
		Normalize(repo, prNode(2, "b", "main", 2*time.Hour)),
	}

	require.NoError(t, svc.Store(context.Background(), batch))
	first := store.rows(t)
	require.NoError(t, svc.Store(context.Background(), batch))
	second := store.rows(t)

	require.Len(t, second, 2)
	assert.Equal(t, first, second)
}

func TestService_StoreIsAtomic(t *testing.T) {
	store := newTestStore(t)
	store.onOpen = func(db *gorm.DB) {
		calls := 0
		_ = db.Callback().Create().Before("gorm:create").Register("test:fail_second", func(tx *gorm.DB) {
			calls++
			if calls == 2 {
				_ = tx.AddError(errors.New("simulated write failure"))
			}
		})
	}
	reporter := &mockReporter{}
	svc := newTestService(t, &mockSource{}, &mockTokens{}, store, reporter)

	repo := github.PullRequestRepository{Name: "api", Owner: &github.Owner{Login: "acme"}}
	err := svc.Store(context.Background(), []pullrequestModel.PullRequest{
		Normalize(repo, prNode(1, "a", "main", time.Hour)),
		Normalize(repo, prNode(2, "b", "main", time.Hour)),
		Normalize(repo, prNode(3, "c", "main", time.Hour)),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Contains(t, err.Error(), "acme/api#2")
	assert.Empty(t, store.rows(t))
	reporter.AssertNotCalled(t, "ReportCommitCorrelation", mock.Anything, mock.Anything)
}

func TestService_RunTransportFailure(t *testing.T) {
	store := newTestStore(t)
	source := &mockSource{}
	source.On("PullRequestsPage", mock.Anything, "tok", "acme", (*string)(nil)).
		Return(github.Page[github.PullRequestRepository]{}, apperr.Errorf(apperr.ErrTransport, "graphql query", "graphql errors: boom")).Once()
	tokens := &mockTokens{}
	tokens.On("Token", mock.Anything).Return("tok", nil)
	svc := newTestService(t, source, tokens, store, &mockReporter{})

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, apperr.ErrTransport)
	assert.Zero(t, store.connects.Load())
}
