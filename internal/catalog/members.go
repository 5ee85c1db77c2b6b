package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/library"
)

// memberRepository is the subset of library.Client that Registry requires.
type memberRepository interface {
	Members(ctx context.Context) ([]domain.Member, error)
	AddMember(ctx context.Context, draft library.MemberDraft) (*domain.Member, error)
	UpdateMember(ctx context.Context, id int64, draft library.MemberDraft) error
	DeleteMember(ctx context.Context, m *domain.Member) error
	MemberLoans(ctx context.Context, id int64) ([]domain.Loan, error)
}

// Registry is the member list. A failed mutation leaves the list as it was.
type Registry struct {
	members memberRepository
	logger  *slog.Logger
	list    []domain.Member
}

func NewRegistry(members memberRepository, logger *slog.Logger) *Registry {
	return &Registry{members: members, logger: logger}
}

func (r *Registry) Load(ctx context.Context) error {
	ms, err := r.members.Members(ctx)
	if err != nil {
		return err
	}
	r.list = ms
	return nil
}

func (r *Registry) Members() []domain.Member {
	return append([]domain.Member(nil), r.list...)
}

// Search matches parent or kid name, ignoring case.
func (r *Registry) Search(query string) []domain.Member {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return r.Members()
	}
	var out []domain.Member
	for _, m := range r.list {
		if strings.Contains(strings.ToLower(m.ParentName), q) || strings.Contains(strings.ToLower(m.KidName), q) {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) Find(id int64) (*domain.Member, bool) {
	for i := range r.list {
		if r.list[i].ID == id {
			m := r.list[i]
			return &m, true
		}
	}
	return nil, false
}

func (r *Registry) Add(ctx context.Context, draft library.MemberDraft) (*domain.Member, error) {
	m, err := r.members.AddMember(ctx, draft)
	if err != nil {
		return nil, err
	}
	r.logger.Info("member added", "id", m.ID)
	return m, r.Load(ctx)
}

func (r *Registry) Update(ctx context.Context, id int64, draft library.MemberDraft) error {
	if err := r.members.UpdateMember(ctx, id, draft); err != nil {
		return err
	}
	r.logger.Info("member updated", "id", id)
	return r.Load(ctx)
}

// Delete removes a member known to the registry. Members with borrowed
// books are refused before any call.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	m, ok := r.Find(id)
	if !ok {
		return library.ErrNotFound
	}
	if err := r.members.DeleteMember(ctx, m); err != nil {
		return err
	}
	r.logger.Info("member deleted", "id", id)

	out := r.list[:0:0]
	for _, other := range r.list {
		if other.ID != id {
			out = append(out, other)
		}
	}
	r.list = out
	return nil
}

func (r *Registry) Loans(ctx context.Context, id int64) ([]domain.Loan, error) {
	return r.members.MemberLoans(ctx, id)
}
