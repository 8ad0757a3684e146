package whitelist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kidtube/cache"
	"kidtube/storage"
	"kidtube/youtube"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, ref youtube.ContentReference) (youtube.Metadata, error) {
	args := m.Called(ctx, ref)
	md, _ := args.Get(0).(youtube.Metadata)
	return md, args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateItem(ctx context.Context, profileID string, md youtube.Metadata) (*storage.WhitelistItem, error) {
	args := m.Called(ctx, profileID, md)
	item, _ := args.Get(0).(*storage.WhitelistItem)
	return item, args.Error(1)
}

func (m *mockStore) ListItems(ctx context.Context, profileID string) ([]*storage.WhitelistItem, error) {
	args := m.Called(ctx, profileID)
	items, _ := args.Get(0).([]*storage.WhitelistItem)
	return items, args.Error(1)
}

func (m *mockStore) DeleteItem(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type stubLister struct {
	videos []youtube.VideoMetadata
	err    error
	calls  int
}

func (l *stubLister) ListVideos(ctx context.Context, channelID string, opts *youtube.ListOptions) ([]youtube.VideoMetadata, error) {
	l.calls++
	return l.videos, l.err
}

func TestAddFromURL(t *testing.T) {
	ctx := context.Background()
	video := &youtube.VideoMetadata{YouTubeID: "vid1", Title: "Counting Song"}
	ref := youtube.ContentReference{Kind: youtube.KindVideo, ID: "vid1"}
	item := &storage.WhitelistItem{ID: "item-1", YouTubeID: "vid1", Kind: youtube.KindVideo}

	resolver := &mockResolver{}
	resolver.On("Resolve", ctx, ref).Return(video, nil).Once()
	store := &mockStore{}
	store.On("CreateItem", ctx, "profile-1", video).Return(item, nil).Once()

	svc := NewService(resolver, store)
	got, err := svc.AddFromURL(ctx, "profile-1", "https://youtu.be/vid1")
	require.NoError(t, err)
	assert.Same(t, item, got)
	resolver.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestAddFromURLUnrecognized(t *testing.T) {
	resolver := &mockResolver{}
	store := &mockStore{}
	svc := NewService(resolver, store)

	_, err := svc.AddFromURL(context.Background(), "profile-1", "https://vimeo.com/123")
	assert.ErrorIs(t, err, ErrUnrecognizedURL)
	assert.Equal(t, MsgUnrecognizedURL, UserMessage(err))
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddFromURLResolutionFailure(t *testing.T) {
	ctx := context.Background()
	ref := youtube.ContentReference{Kind: youtube.KindChannelHandle, ID: "nobody"}
	resErr := &youtube.ResolutionError{Ref: ref, Err: youtube.ErrNotFound}

	resolver := &mockResolver{}
	resolver.On("Resolve", ctx, ref).Return(nil, resErr)
	store := &mockStore{}

	svc := NewService(resolver, store)
	_, err := svc.AddFromURL(ctx, "profile-1", "https://www.youtube.com/@nobody")
	assert.ErrorIs(t, err, youtube.ErrResolutionFailed)
	assert.Equal(t, youtube.UserMessage, UserMessage(err))
	store.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddFromURLDuplicate(t *testing.T) {
	ctx := context.Background()
	pl := &youtube.PlaylistMetadata{YouTubeID: "PL1", Title: "Lullabies"}
	dup := &storage.StorageError{Op: "create", Entity: "item", ID: "PL1", Err: storage.ErrAlreadyExists}

	resolver := &mockResolver{}
	resolver.On("Resolve", ctx, mock.Anything).Return(pl, nil)
	store := &mockStore{}
	store.On("CreateItem", ctx, "profile-1", pl).Return(nil, dup)

	svc := NewService(resolver, store)
	_, err := svc.AddFromURL(ctx, "profile-1", "https://www.youtube.com/playlist?list=PL1")
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	assert.Equal(t, MsgAlreadyApproved, UserMessage(err))
}

func TestListAndRemove(t *testing.T) {
	ctx := context.Background()
	items := []*storage.WhitelistItem{{ID: "a"}, {ID: "b"}}

	store := &mockStore{}
	store.On("ListItems", ctx, "profile-1").Return(items, nil)
	store.On("DeleteItem", ctx, "a").Return(nil)

	svc := NewService(&mockResolver{}, store)
	got, err := svc.List(ctx, "profile-1")
	require.NoError(t, err)
	assert.Equal(t, items, got)
	require.NoError(t, svc.Remove(ctx, "a"))
	store.AssertExpectations(t)
}

func TestChannelVideosFallbackAndCache(t *testing.T) {
	ctx := context.Background()
	videos := []youtube.VideoMetadata{{YouTubeID: "vid1", Title: "Counting Song"}}
	primary := &stubLister{err: fmt.Errorf("quota: %w", youtube.ErrRateLimited)}
	fallback := &stubLister{videos: videos}

	svc := NewService(&mockResolver{}, &mockStore{},
		WithListers(primary, fallback),
		WithCache(cache.NewMemoryCache(10, time.Hour), 0))

	got, err := svc.ChannelVideos(ctx, "UC1", nil)
	require.NoError(t, err)
	assert.Equal(t, videos, got)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)

	got, err = svc.ChannelVideos(ctx, "UC1", nil)
	require.NoError(t, err)
	assert.Equal(t, videos, got)
	assert.Equal(t, 1, primary.calls, "second call should be served from cache")
	assert.Equal(t, 1, fallback.calls)
}

func TestChannelVideosAllFail(t *testing.T) {
	svc := NewService(&mockResolver{}, &mockStore{},
		WithListers(&stubLister{err: youtube.ErrRateLimited}, &stubLister{err: youtube.ErrNotFound}))

	_, err := svc.ChannelVideos(context.Background(), "UC1", nil)
	assert.ErrorIs(t, err, youtube.ErrNotFound)
	assert.Equal(t, MsgGeneric, UserMessage(err))
}

func TestChannelVideosNoLister(t *testing.T) {
	svc := NewService(&mockResolver{}, &mockStore{})
	_, err := svc.ChannelVideos(context.Background(), "UC1", nil)
	assert.ErrorIs(t, err, ErrNoLister)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&storage.StorageError{Op: "delete", Entity: "item", Err: storage.ErrNotFound}, MsgNotFound},
		{&storage.StorageError{Op: "create", Entity: "item", Err: storage.ErrInvalidInput}, MsgInvalidInput},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), MsgCancelled},
		{errors.New("boom"), MsgGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UserMessage(tt.err))
	}
}
