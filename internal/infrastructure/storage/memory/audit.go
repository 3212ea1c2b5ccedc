package memory

import (
	"context"
	"maps"

	"magasin/internal/domain/audit"
)

// AuditRepo implements audit.Recorder.
type AuditRepo struct {
	store *Store
}

var _ audit.Recorder = (*AuditRepo)(nil)

func (r *AuditRepo) Record(ctx context.Context, e audit.Entry) error {
	return r.store.write(ctx, func(st *state) error {
		e.ID = st.newID()
		e.Changes = maps.Clone(e.Changes)
		st.audit = append(st.audit, e)
		return nil
	})
}

func (r *AuditRepo) List(ctx context.Context, entityType string, entityID int64) ([]audit.Entry, error) {
	out := []audit.Entry{}
	err := r.store.read(ctx, func(st *state) error {
		for _, e := range st.audit {
			if e.EntityType == entityType && e.EntityID == entityID {
				e.Changes = maps.Clone(e.Changes)
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}
