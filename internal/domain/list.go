package domain

import "context"

// List is a named set of addresses used as a mailing list or a guest list.
// swagger:model List
type List struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListMember is one address on a list.
type ListMember struct {
	ListID int64  `json:"list_id"`
	Email  string `json:"email"`
	UserID *int64 `json:"user_id,omitempty"`
}

// ListRepository stores lists and their members.
type ListRepository interface {
	Create(ctx context.Context, list *List) error
	GetByID(ctx context.Context, id int64) (*List, error)
	IsMember(ctx context.Context, listID int64, email string) (bool, error)
	ListMembers(ctx context.Context, listID int64) ([]*ListMember, error)
	AddMembers(ctx context.Context, listID int64, emails []string) error
	RemoveMember(ctx context.Context, listID int64, email string) error
}
