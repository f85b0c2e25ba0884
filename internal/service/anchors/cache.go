package anchors

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strconv"

	"golang.org/x/sync/singleflight"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiRepo "supportkb/internal/domain/repositories/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
)

// anchorMapCache implements AnchorMapCache on the anchor record table.
// singleflight collapses concurrent misses inside one process; the
// insert-if-absent in the repository settles races between processes.
type anchorMapCache struct {
	repo   wikiRepo.AnchorRecordRepository
	group  singleflight.Group
	logger *slog.Logger
}

// NewAnchorMapCache creates the heading map cache
func NewAnchorMapCache(repo wikiRepo.AnchorRecordRepository, logger *slog.Logger) wikiSvc.AnchorMapCache {
	return &anchorMapCache{repo: repo, logger: logger}
}

func (c *anchorMapCache) Get(ctx context.Context, revisionID int64) (map[string]string, bool, error) {
	record, err := c.repo.Get(ctx, revisionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return record.Map, true, nil
}

func (c *anchorMapCache) GetOrCompute(ctx context.Context, revisionID int64, compute wikiSvc.ComputeFn) (map[string]string, error) {
	if m, found, err := c.Get(ctx, revisionID); err != nil {
		return nil, err
	} else if found {
		return m, nil
	}

	// The shared computation outlives any single caller; compute bounds its
	// own collaborator calls with the resolver timeout.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatInt(revisionID, 10), func() (interface{}, error) {
		ctx := shared
		if m, found, err := c.Get(ctx, revisionID); err != nil {
			return nil, err
		} else if found {
			return m, nil
		}

		hm, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		record := &models.RevisionAnchorRecord{
			RevisionID:  revisionID,
			Map:         hm.Map,
			Explanation: hm.Explanation,
		}
		if record.Map == nil {
			record.Map = map[string]string{}
		}

		created, err := c.repo.CreateIfAbsent(ctx, record)
		if err != nil {
			return nil, err
		}
		if created {
			c.logger.Debug("anchor map cached", "revision_id", revisionID, "anchors", len(record.Map))
			return record.Map, nil
		}

		// Another process won the insert; its row is the answer
		stored, err := c.repo.Get(ctx, revisionID)
		if err != nil {
			return nil, err
		}
		return stored.Map, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return maps.Clone(res.Val.(map[string]string)), nil
	}
}
