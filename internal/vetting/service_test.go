package vetting

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"havenhomes/marketplace-backend/internal/apierr"
	"havenhomes/marketplace-backend/internal/listings"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListQueue(ctx context.Context, q QueueQuery) ([]QueueRow, int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]QueueRow), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) AvailableStates(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) Transition(ctx context.Context, id uuid.UUID, decision Decision, reviewerID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, id, decision, reviewerID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetListing(ctx context.Context, id uuid.UUID) (*listings.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Listing), args.Error(1)
}

func (m *MockRepository) GetOwnerName(ctx context.Context, ownerID uuid.UUID) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) CreateEvent(ctx context.Context, event *VettingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRepository) QueueStats(ctx context.Context, overdueBefore time.Time) (int64, int64, error) {
	args := m.Called(ctx, overdueBefore)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockNotifier records decision notifications
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) DecisionMade(ctx context.Context, ownerID, listingID uuid.UUID, title string, decision Decision, note string) {
	m.Called(ctx, ownerID, listingID, title, decision, note)
}

// MockObjectStore is a mock implementation of storage.ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newTestService(repo Repository, notifier Notifier, at time.Time) *Service {
	svc := NewService(repo, nil, notifier, zap.NewNop())
	svc.now = func() time.Time { return at }
	return svc
}

func TestParseQueueQueryDefaults(t *testing.T) {
	q, err := ParseQueueQuery(RawQueueQuery{})

	assert.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.PerPage)
	assert.Equal(t, SortNewest, q.Sort)
	assert.Empty(t, q.State)
	assert.Empty(t, q.Priority)
}

func TestParseQueueQueryInvalidFields(t *testing.T) {
	_, err := ParseQueueQuery(RawQueueQuery{
		Page:     "zero",
		PerPage:  "0",
		Sort:     "price",
		Priority: "critical",
	})

	assert.Error(t, err)
	assert.Equal(t, apierr.KindInvalid, apierr.KindOf(err))

	var apiErr *apierr.Error
	assert.ErrorAs(t, err, &apiErr)
	assert.Len(t, apiErr.Fields, 4)
}

func TestParseQueueQueryPerPageCap(t *testing.T) {
	_, err := ParseQueueQuery(RawQueueQuery{PerPage: "101"})
	assert.Equal(t, apierr.KindInvalid, apierr.KindOf(err))

	q, err := ParseQueueQuery(RawQueueQuery{PerPage: "100"})
	assert.NoError(t, err)
	assert.Equal(t, 100, q.PerPage)
}

func TestQueueDerivedFieldsAndPagination(t *testing.T) {
	mockRepo := new(MockRepository)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := newTestService(mockRepo, nil, now)

	validated := now.Add(-10 * 24 * time.Hour)
	created := now.Add(-20 * 24 * time.Hour)
	rows := []QueueRow{
		{ID: uuid.New(), State: "Lagos", Price: 80_000_000, DocumentCount: 2, MLValidatedAt: &validated, CreatedAt: created},
		{ID: uuid.New(), State: "Abuja", Price: 5_000_000, DocumentCount: 5, CreatedAt: created},
	}
	mockRepo.On("ListQueue", mock.Anything, mock.AnythingOfType("vetting.QueueQuery")).Return(rows, int64(45), nil)
	mockRepo.On("AvailableStates", mock.Anything).Return([]string{"Abuja", "Lagos", "Rivers"}, nil)

	page, err := service.Queue(context.Background(), RawQueueQuery{Page: "2"})

	assert.NoError(t, err)
	assert.Len(t, page.Data, 2)

	first := page.Data[0]
	assert.Equal(t, 10, first.DaysWaiting)
	assert.True(t, first.HighValue)
	assert.False(t, first.HasCompleteDocuments)
	assert.Equal(t, UrgencyUrgent, first.UrgencyLevel)

	second := page.Data[1]
	// Falls back to created_at when the pre-check timestamp is absent.
	assert.Equal(t, 20, second.DaysWaiting)
	assert.False(t, second.HighValue)
	assert.True(t, second.HasCompleteDocuments)
	assert.Equal(t, UrgencyMedium, second.UrgencyLevel)

	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, int64(45), page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)

	assert.Equal(t, int64(45), page.Summary.TotalPending)
	assert.Equal(t, 1, page.Summary.UrgentCount)
	assert.Equal(t, 1, page.Summary.HighValueCount)
	assert.Equal(t, 15.0, page.Summary.AverageWaitDays)
	assert.Equal(t, 2, page.Summary.StatesRepresented)

	assert.Equal(t, []string{"Abuja", "Lagos", "Rivers"}, page.Filters.AvailableStates)
	mockRepo.AssertExpectations(t)
}

func TestQueuePriorityFilterPassedToRepository(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, nil, time.Now())

	mockRepo.On("ListQueue", mock.Anything, mock.MatchedBy(func(q QueueQuery) bool {
		return q.Priority == UrgencyUrgent && q.State == "Lagos"
	})).Return([]QueueRow{}, int64(0), nil)
	mockRepo.On("AvailableStates", mock.Anything).Return([]string{"Lagos"}, nil)

	page, err := service.Queue(context.Background(), RawQueueQuery{Priority: "urgent", State: "Lagos"})

	assert.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasNext)
	assert.False(t, page.Pagination.HasPrev)
	mockRepo.AssertExpectations(t)
}

func TestDecideRejectsUnknownDecision(t *testing.T) {
	service := newTestService(new(MockRepository), nil, time.Now())

	_, err := service.Decide(context.Background(), uuid.New(), uuid.New(), "approved", "")

	assert.Equal(t, apierr.KindInvalid, apierr.KindOf(err))
}

func TestDecideListingNotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, nil, time.Now())
	listingID := uuid.New()

	mockRepo.On("Transition", mock.Anything, listingID, DecisionVerified, mock.Anything, mock.Anything).Return(int64(0), nil)
	mockRepo.On("GetListing", mock.Anything, listingID).Return(nil, gorm.ErrRecordNotFound)

	_, err := service.Decide(context.Background(), listingID, uuid.New(), DecisionVerified, "")

	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestDecideAlreadyReviewedConflicts(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, nil, time.Now())
	listingID := uuid.New()

	mockRepo.On("Transition", mock.Anything, listingID, DecisionRejected, mock.Anything, mock.Anything).Return(int64(0), nil)
	mockRepo.On("GetListing", mock.Anything, listingID).Return(&listings.Listing{
		ID: listingID, Status: listings.StatusVerified,
	}, nil)

	_, err := service.Decide(context.Background(), listingID, uuid.New(), DecisionRejected, "")

	assert.Equal(t, apierr.KindConflict, apierr.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestDecideSuccessRecordsEventAndNotifies(t *testing.T) {
	mockRepo := new(MockRepository)
	mockNotifier := new(MockNotifier)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := newTestService(mockRepo, mockNotifier, now)

	listingID := uuid.New()
	reviewerID := uuid.New()
	ownerID := uuid.New()
	reviewed := &listings.Listing{
		ID: listingID, OwnerID: ownerID, Title: "3 Bedroom Flat, Lekki",
		Status: listings.StatusRejected, ReviewedAt: &now, ReviewedBy: &reviewerID,
	}

	mockRepo.On("Transition", mock.Anything, listingID, DecisionRejected, reviewerID, now).Return(int64(1), nil)
	mockRepo.On("CreateEvent", mock.Anything, mock.MatchedBy(func(event *VettingEvent) bool {
		return event.ListingID == listingID &&
			event.Decision == DecisionRejected &&
			event.Note == "survey plan does not match the address" &&
			event.ReviewerID == reviewerID
	})).Return(nil)
	mockRepo.On("GetListing", mock.Anything, listingID).Return(reviewed, nil)
	mockNotifier.On("DecisionMade", mock.Anything, ownerID, listingID, reviewed.Title,
		DecisionRejected, "survey plan does not match the address").Return()

	listing, err := service.Decide(context.Background(), listingID, reviewerID,
		DecisionRejected, "survey plan does not match the address")

	assert.NoError(t, err)
	assert.Equal(t, listings.StatusRejected, listing.Status)
	mockRepo.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

func TestDecideRejectedPurgesStoredFiles(t *testing.T) {
	mockRepo := new(MockRepository)
	mockStore := new(MockObjectStore)
	service := newTestService(mockRepo, nil, time.Now())
	service.store = mockStore

	listingID := uuid.New()
	reviewerID := uuid.New()
	rejected := &listings.Listing{
		ID: listingID, OwnerID: uuid.New(), Status: listings.StatusRejected,
		Documents: []listings.ListingDocument{{ObjectKey: "listings/x/documents/deed.pdf"}},
		Media:     []listings.ListingMedia{{ObjectKey: "listings/x/media/front.jpg"}},
	}

	mockRepo.On("Transition", mock.Anything, listingID, DecisionRejected, reviewerID, mock.Anything).Return(int64(1), nil)
	mockRepo.On("CreateEvent", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("GetListing", mock.Anything, listingID).Return(rejected, nil)
	mockStore.On("Delete", mock.Anything, "listings/x/documents/deed.pdf").Return(nil)
	mockStore.On("Delete", mock.Anything, "listings/x/media/front.jpg").Return(nil)

	_, err := service.Decide(context.Background(), listingID, reviewerID, DecisionRejected, "")

	assert.NoError(t, err)
	mockStore.AssertExpectations(t)
}

func TestDecideVerifiedKeepsStoredFiles(t *testing.T) {
	mockRepo := new(MockRepository)
	mockStore := new(MockObjectStore)
	service := newTestService(mockRepo, nil, time.Now())
	service.store = mockStore

	listingID := uuid.New()
	verified := &listings.Listing{
		ID: listingID, OwnerID: uuid.New(), Status: listings.StatusVerified,
		Documents: []listings.ListingDocument{{ObjectKey: "listings/x/documents/deed.pdf"}},
	}

	mockRepo.On("Transition", mock.Anything, listingID, DecisionVerified, mock.Anything, mock.Anything).Return(int64(1), nil)
	mockRepo.On("CreateEvent", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("GetListing", mock.Anything, listingID).Return(verified, nil)

	_, err := service.Decide(context.Background(), listingID, uuid.New(), DecisionVerified, "")

	assert.NoError(t, err)
	mockStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDecideTransitionErrorIsUnavailable(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, nil, time.Now())

	mockRepo.On("Transition", mock.Anything, mock.Anything, DecisionVerified, mock.Anything, mock.Anything).
		Return(int64(0), errors.New("connection refused"))

	_, err := service.Decide(context.Background(), uuid.New(), uuid.New(), DecisionVerified, "")

	assert.Equal(t, apierr.KindUnavailable, apierr.KindOf(err))
}

func TestExportQueueDisablesPagination(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, nil, time.Now())

	mockRepo.On("ListQueue", mock.Anything, mock.MatchedBy(func(q QueueQuery) bool {
		return q.PerPage == 0
	})).Return([]QueueRow{
		{ID: uuid.New(), Title: "Duplex in Asokoro", State: "Abuja", Price: 90_000_000, CreatedAt: time.Now()},
	}, int64(1), nil)

	buf, err := service.ExportQueue(context.Background(), RawQueueQuery{Page: "3", PerPage: "10"})

	assert.NoError(t, err)
	assert.NotZero(t, buf.Len())
	mockRepo.AssertExpectations(t)
}

func TestCertificateRequiresVerifiedListing(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, nil, time.Now())
	listingID := uuid.New()

	mockRepo.On("GetListing", mock.Anything, listingID).Return(&listings.Listing{
		ID: listingID, Status: listings.StatusPendingVetting,
	}, nil)

	_, err := service.Certificate(context.Background(), listingID)

	assert.Equal(t, apierr.KindConflict, apierr.KindOf(err))
}

func TestCertificateRendersForVerifiedListing(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, nil, time.Now())
	listingID := uuid.New()
	ownerID := uuid.New()
	reviewedAt := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	mockRepo.On("GetListing", mock.Anything, listingID).Return(&listings.Listing{
		ID: listingID, OwnerID: ownerID, Title: "Terrace House, Yaba",
		Address: "12 Herbert Macaulay Way", City: "Yaba", State: "Lagos",
		Category: listings.CategoryHouse, Status: listings.StatusVerified,
		ReviewedAt: &reviewedAt,
	}, nil)
	mockRepo.On("GetOwnerName", mock.Anything, ownerID).Return("Adaeze Okafor", nil)

	data, err := service.Certificate(context.Background(), listingID)

	assert.NoError(t, err)
	assert.NotEmpty(t, data)
	mockRepo.AssertExpectations(t)
}
