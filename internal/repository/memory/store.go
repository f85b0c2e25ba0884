// Package memory is an in-process ContentStore backend used by tests and by
// the server when STORAGE_BACKEND=memory. It enforces the same unique keys and
// compare-and-set rules as the postgres backend.
//
// Transactions are serialized: ExecTx holds a store-wide lock for the whole
// closure and writes made outside a transaction wait for it. A failing closure
// restores the snapshot taken when it started.
package memory

import (
	"context"
	"strconv"
	"sync"

	models "supportkb/internal/domain/models/wiki"
	"supportkb/internal/domain/repositories"
	wikiRepo "supportkb/internal/domain/repositories/wiki"
)

type draftKey struct {
	creatorID  string
	documentID int64
	locale     string
}

type state struct {
	nextDocumentID int64
	nextRevisionID int64
	documents      map[int64]*models.Document
	revisions      map[int64]*models.Revision
	contributors   map[int64]map[string]struct{}
	drafts         map[draftKey]*models.DraftRevision
	anchors        map[int64]*models.RevisionAnchorRecord
}

// Store holds all entities behind one lock
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		st: state{
			documents:    make(map[int64]*models.Document),
			revisions:    make(map[int64]*models.Revision),
			contributors: make(map[int64]map[string]struct{}),
			drafts:       make(map[draftKey]*models.DraftRevision),
			anchors:      make(map[int64]*models.RevisionAnchorRecord),
		},
	}
}

// Repositories bundles the ContentStore interfaces served by one store
type Repositories struct {
	Documents     wikiRepo.DocumentRepository
	Revisions     wikiRepo.RevisionRepository
	Drafts        wikiRepo.DraftRepository
	AnchorRecords wikiRepo.AnchorRecordRepository
	TxManager     repositories.TransactionManager
}

// Repositories returns every repository view of the store
func (s *Store) Repositories() Repositories {
	return Repositories{
		Documents:     &documentRepository{s: s},
		Revisions:     &revisionRepository{s: s},
		Drafts:        &draftRepository{s: s},
		AnchorRecords: &anchorRecordRepository{s: s},
		TxManager:     s,
	}
}

// ExecTx runs fn with exclusive write access. Nested calls join the outer closure.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if repositories.InTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(repositories.MarkTx(ctx)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// write runs fn under the data lock, waiting for any running transaction
// unless ctx belongs to it
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !repositories.InTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.st)
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.st)
}

func (st *state) clone() state {
	out := state{
		nextDocumentID: st.nextDocumentID,
		nextRevisionID: st.nextRevisionID,
		documents:      make(map[int64]*models.Document, len(st.documents)),
		revisions:      make(map[int64]*models.Revision, len(st.revisions)),
		contributors:   make(map[int64]map[string]struct{}, len(st.contributors)),
		drafts:         make(map[draftKey]*models.DraftRevision, len(st.drafts)),
		anchors:        make(map[int64]*models.RevisionAnchorRecord, len(st.anchors)),
	}
	for id, d := range st.documents {
		out.documents[id] = copyDocument(d)
	}
	for id, r := range st.revisions {
		out.revisions[id] = copyRevision(r)
	}
	for id, users := range st.contributors {
		set := make(map[string]struct{}, len(users))
		for u := range users {
			set[u] = struct{}{}
		}
		out.contributors[id] = set
	}
	for k, d := range st.drafts {
		cp := *d
		out.drafts[k] = &cp
	}
	for id, a := range st.anchors {
		out.anchors[id] = copyAnchorRecord(a)
	}
	return out
}

func copyDocument(d *models.Document) *models.Document {
	cp := *d
	cp.ParentID = copyID(d.ParentID)
	cp.CurrentRevisionID = copyID(d.CurrentRevisionID)
	cp.LatestLocalizableRevisionID = copyID(d.LatestLocalizableRevisionID)
	return &cp
}

func copyRevision(r *models.Revision) *models.Revision {
	cp := *r
	cp.BasedOnID = copyID(r.BasedOnID)
	if r.Significance != nil {
		sig := *r.Significance
		cp.Significance = &sig
	}
	if r.ReviewerID != nil {
		v := *r.ReviewerID
		cp.ReviewerID = &v
	}
	if r.ReviewedAt != nil {
		v := *r.ReviewedAt
		cp.ReviewedAt = &v
	}
	if r.ReadiedForLocalizationAt != nil {
		v := *r.ReadiedForLocalizationAt
		cp.ReadiedForLocalizationAt = &v
	}
	if r.ReadiedForLocalizationBy != nil {
		v := *r.ReadiedForLocalizationBy
		cp.ReadiedForLocalizationBy = &v
	}
	return &cp
}

func copyAnchorRecord(a *models.RevisionAnchorRecord) *models.RevisionAnchorRecord {
	cp := *a
	cp.Map = make(map[string]string, len(a.Map))
	for k, v := range a.Map {
		cp.Map[k] = v
	}
	return &cp
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
