package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

type documentRepository struct {
	r *Repository
}

func (d *documentRepository) Upsert(ctx context.Context, doc *models.Document) error {
	return d.r.write("document.upsert", func(st *state) error {
		if _, ok := st.uids[doc.UID]; !ok {
			return fmt.Errorf("uid %s: %w", doc.UID, repositories.ErrNotFound)
		}
		byKind := st.documents[doc.UID]
		if byKind == nil {
			byKind = make(map[models.DocumentKind]*models.Document)
			st.documents[doc.UID] = byKind
		}
		now := time.Now().UTC()
		if existing, ok := byKind[doc.Kind]; ok {
			doc.CreatedAt = existing.CreatedAt
		} else {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now
		byKind[doc.Kind] = doc.Clone()
		return nil
	})
}

func (d *documentRepository) Get(ctx context.Context, uid string, kind models.DocumentKind) (*models.Document, error) {
	var out *models.Document
	err := d.r.read(func(st *state) error {
		doc, ok := st.documents[uid][kind]
		if !ok {
			return repositories.ErrNotFound
		}
		out = doc.Clone()
		return nil
	})
	return out, err
}

func (d *documentRepository) DeleteByUID(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := d.r.write("document.delete_by_uid", func(st *state) error {
		n = int64(len(st.documents[uid]))
		delete(st.documents, uid)
		return nil
	})
	return n, err
}

func (d *documentRepository) CountByUID(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := d.r.read(func(st *state) error {
		n = int64(len(st.documents[uid]))
		return nil
	})
	return n, err
}

type historyRepository struct {
	r *Repository
}

func (h *historyRepository) Create(ctx context.Context, entry *models.StatusHistory) error {
	return h.r.write("history.create", func(st *state) error {
		entry.ID = st.nextHistoryID
		st.nextHistoryID++
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		cp := *entry
		st.history = append(st.history, &cp)
		return nil
	})
}

func (h *historyRepository) ListByUID(ctx context.Context, uid string) ([]*models.StatusHistory, error) {
	out := []*models.StatusHistory{}
	err := h.r.read(func(st *state) error {
		for _, e := range st.history {
			if e.UID == uid {
				cp := *e
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (h *historyRepository) DeleteByUID(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := h.r.write("history.delete_by_uid", func(st *state) error {
		kept := st.history[:0:0]
		for _, e := range st.history {
			if e.UID == uid {
				n++
				continue
			}
			kept = append(kept, e)
		}
		st.history = kept
		return nil
	})
	return n, err
}
