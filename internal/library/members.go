package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/domain"
)

// memberList accepts both a bare array and {"members": [...]}.
type memberList []domain.Member

func (l *memberList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Members []domain.Member `json:"members"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		*l = wrapped.Members
		return nil
	}
	var bare []domain.Member
	if err := json.Unmarshal(data, &bare); err != nil {
		return err
	}
	*l = bare
	return nil
}

func (c *Client) Members(ctx context.Context) ([]domain.Member, error) {
	var members memberList
	if err := c.api.GetJSON(ctx, "/api/members", nil, &members); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// AddMember returns the member as stored. Servers that answer with only a
// message yield the draft fields and a zero ID.
func (c *Client) AddMember(ctx context.Context, draft MemberDraft) (*domain.Member, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var created domain.Member
	if err := c.api.PostJSON(ctx, "/api/members", draft, &created); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	if created.ParentName == "" {
		created.ParentName = draft.ParentName
		created.KidName = draft.KidName
		created.Email = draft.Email
	}
	return &created, nil
}

func (c *Client) UpdateMember(ctx context.Context, id int64, draft MemberDraft) error {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return err
	}
	if err := c.api.PutJSON(ctx, memberPath(id), draft, nil); err != nil {
		return fmt.Errorf("failed to update member %d: %w", id, err)
	}
	return nil
}

// DeleteMember refuses members that still hold books before calling the
// server, which enforces the same rule.
func (c *Client) DeleteMember(ctx context.Context, m *domain.Member) error {
	if !m.Deletable() {
		return fmt.Errorf("member %d: %w", m.ID, ErrMemberHasLoans)
	}
	err := c.api.Delete(ctx, memberPath(m.ID), nil)
	switch apiclient.StatusCode(err) {
	case 0:
		if err != nil {
			return fmt.Errorf("failed to delete member %d: %w", m.ID, err)
		}
		return nil
	case http.StatusConflict:
		return fmt.Errorf("member %d: %w: %w", m.ID, ErrMemberHasLoans, err)
	case http.StatusNotFound:
		return fmt.Errorf("member %d: %w", m.ID, ErrNotFound)
	default:
		return fmt.Errorf("failed to delete member %d: %w", m.ID, err)
	}
}

func (c *Client) MemberLoans(ctx context.Context, id int64) ([]domain.Loan, error) {
	var loans []domain.Loan
	if err := c.api.GetJSON(ctx, memberPath(id)+"/loans", nil, &loans); err != nil {
		return nil, fmt.Errorf("failed to list loans of member %d: %w", id, err)
	}
	return loans, nil
}

func memberPath(id int64) string {
	return "/api/members/" + strconv.FormatInt(id, 10)
}
