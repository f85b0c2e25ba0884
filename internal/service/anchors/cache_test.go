package anchors

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedRevision creates a document with one revision so anchor records have a parent row
func seedRevision(t *testing.T, repos memory.Repositories) int64 {
	t.Helper()
	ctx := context.Background()
	doc := &models.Document{Title: "Cars", Slug: "cars", Locale: "en-US", Category: models.CategoryHowTo, IsLocalizable: true}
	require.NoError(t, repos.Documents.Create(ctx, doc))
	rev := &models.Revision{DocumentID: doc.ID, Content: "x", CreatorID: "u"}
	require.NoError(t, repos.Revisions.Create(ctx, rev))
	return rev.ID
}

func TestAnchorMapCache_ComputesOnce(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	revID := seedRevision(t, repos)
	cache := NewAnchorMapCache(repos.AnchorRecords, testLogger())

	_, found, err := cache.Get(ctx, revID)
	require.NoError(t, err)
	assert.False(t, found)

	var computed atomic.Int32
	compute := func(ctx context.Context) (*wikiSvc.HeadingMap, error) {
		computed.Add(1)
		time.Sleep(5 * time.Millisecond)
		return &wikiSvc.HeadingMap{Map: map[string]string{"w_engine": "w_moteur"}, Explanation: "ok"}, nil
	}

	var g errgroup.Group
	results := make([]map[string]string, 8)
	for i := range results {
		g.Go(func() error {
			m, err := cache.GetOrCompute(ctx, revID, compute)
			results[i] = m
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), computed.Load())
	for _, m := range results {
		assert.Equal(t, map[string]string{"w_engine": "w_moteur"}, m)
	}

	m, found, err := cache.Get(ctx, revID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "w_moteur", m["w_engine"])

	// Callers get their own copy
	results[0]["w_engine"] = "changed"
	again, err := cache.GetOrCompute(ctx, revID, compute)
	require.NoError(t, err)
	assert.Equal(t, "w_moteur", again["w_engine"])
}

func TestAnchorMapCache_LoserReadsWinner(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	revID := seedRevision(t, repos)
	cache := NewAnchorMapCache(repos.AnchorRecords, testLogger())

	// Another process stores its map while this one is computing
	m, err := cache.GetOrCompute(ctx, revID, func(ctx context.Context) (*wikiSvc.HeadingMap, error) {
		_, err := repos.AnchorRecords.CreateIfAbsent(ctx, &models.RevisionAnchorRecord{
			RevisionID: revID,
			Map:        map[string]string{"w_a": "w_first"},
		})
		require.NoError(t, err)
		return &wikiSvc.HeadingMap{Map: map[string]string{"w_a": "w_second"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "w_first", m["w_a"])
}

func TestAnchorMapCache_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	revID := seedRevision(t, repos)
	cache := NewAnchorMapCache(repos.AnchorRecords, testLogger())

	boom := errors.New("provider down")
	_, err := cache.GetOrCompute(ctx, revID, func(ctx context.Context) (*wikiSvc.HeadingMap, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	m, err := cache.GetOrCompute(ctx, revID, func(ctx context.Context) (*wikiSvc.HeadingMap, error) {
		return &wikiSvc.HeadingMap{}, nil
	})
	require.NoError(t, err)
	assert.Empty(t, m)

	_, found, err := cache.Get(ctx, revID)
	require.NoError(t, err)
	assert.True(t, found, "empty maps are cached too")
}

func TestAnchorMapCache_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	repos := memory.NewStore().Repositories()
	revID := seedRevision(t, repos)
	cache := NewAnchorMapCache(repos.AnchorRecords, testLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	var computes atomic.Int32
	compute := func(ctx context.Context) (*wikiSvc.HeadingMap, error) {
		computes.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &wikiSvc.HeadingMap{Map: map[string]string{"w_a": "w_b"}}, nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.GetOrCompute(firstCtx, revID, compute)
		firstErr <- err
	}()
	<-started

	second := make(chan map[string]string, 1)
	go func() {
		m, err := cache.GetOrCompute(context.Background(), revID, func(ctx context.Context) (*wikiSvc.HeadingMap, error) {
			return nil, errors.New("joined callers never compute")
		})
		assert.NoError(t, err)
		second <- m
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case m := <-second:
		assert.Equal(t, "w_b", m["w_a"])
	case <-time.After(time.Second):
		t.Fatal("waiting caller did not return")
	}
	assert.Equal(t, int32(1), computes.Load())

	stored, found, err := cache.Get(context.Background(), revID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "w_b", stored["w_a"])
}
