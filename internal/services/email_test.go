package services

import (
	"context"
	"testing"

	"townhall/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPost(t *testing.T, h *harness, members ...string) (*domain.Post, *domain.List) {
	t.Helper()
	ctx := context.Background()
	list := &domain.List{Name: "News"}
	require.NoError(t, h.lists.Create(ctx, list))
	require.NoError(t, h.lists.AddMembers(ctx, list.ID, members))
	post := domain.Post{ID: h.store.id(), Slug: "hello", Title: "Hello"}
	h.store.posts[post.ID] = post
	return &post, list
}

func TestEmailService_BroadcastPost(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	post, list := seedPost(t, h, "a@x.org", "b@x.org")

	batch, err := h.emails.BroadcastPost(ctx, post.ID, list.ID)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 2, batch.Size)
	assert.Equal(t, domain.PriorityNormal, h.queue.priorities[0])

	require.NoError(t, h.lists.AddMembers(ctx, list.ID, []string{"c@x.org"}))
	batch, err = h.emails.BroadcastPost(ctx, post.ID, list.ID)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 1, batch.Size, "members already mailed are skipped")

	batch, err = h.emails.BroadcastPost(ctx, post.ID, list.ID)
	require.NoError(t, err)
	assert.Nil(t, batch)

	_, err = h.emails.BroadcastPost(ctx, 9999, list.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmailService_FinalizeFillsLinks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	post, list := seedPost(t, h, "a@x.org")
	_, err := h.emails.BroadcastPost(ctx, post.ID, list.ID)
	require.NoError(t, err)

	sent := h.queue.sent(domain.EmailPost)
	require.Len(t, sent, 1)
	email := sent[0]
	assert.Contains(t, email.HTMLBody, pixelURLPlaceholder)

	require.NoError(t, h.emails.Finalize(&email))
	assert.NotContains(t, email.HTMLBody, pixelURLPlaceholder)
	assert.Contains(t, email.HTMLBody, "https://town.test/emails/")
	assert.Contains(t, email.TextBody, "/unsubscribe?token=sig-")

	login := &domain.Email{Kind: domain.EmailLogin, HTMLBody: pixelURLPlaceholder}
	require.NoError(t, h.emails.Finalize(login))
	assert.Equal(t, pixelURLPlaceholder, login.HTMLBody)
}

func TestEmailService_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	post, list := seedPost(t, h, "a@x.org", "b@x.org")
	_, err := h.emails.BroadcastPost(ctx, post.ID, list.ID)
	require.NoError(t, err)
	email := h.queue.sent(domain.EmailPost)[0]
	token, _ := fakeSigner{}.Sign(email.ID)

	_, err = h.emails.UnsubscribeInfo(ctx, email.ID, "sig-1")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.ErrorIs(t, h.emails.Unsubscribe(ctx, email.ID, "garbage"), domain.ErrInvalidToken)

	info, err := h.emails.UnsubscribeInfo(ctx, email.ID, token)
	require.NoError(t, err)
	assert.Equal(t, email.Address, info.Address)

	require.NoError(t, h.emails.Unsubscribe(ctx, email.ID, token))
	ok, err := h.lists.IsMember(ctx, list.ID, email.Address)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, h.emails.Unsubscribe(ctx, email.ID, token), "unsubscribing twice is harmless")
}

func TestEmailService_TrackOpen(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	post, list := seedPost(t, h, "a@x.org")
	_, err := h.emails.BroadcastPost(ctx, post.ID, list.ID)
	require.NoError(t, err)
	email := h.queue.sent(domain.EmailPost)[0]

	require.NoError(t, h.emails.TrackOpen(ctx, email.ID))
	first, err := h.emailRepo.GetByID(ctx, email.ID)
	require.NoError(t, err)
	require.NotNil(t, first.OpenedAt)

	require.NoError(t, h.emails.TrackOpen(ctx, email.ID))
	second, err := h.emailRepo.GetByID(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, first.OpenedAt, second.OpenedAt)
}
