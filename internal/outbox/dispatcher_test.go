package outbox_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/outbox"
	"github.com/vytor/mathtermind/internal/repository"
	"github.com/vytor/mathtermind/internal/repository/sqlite"
	"github.com/vytor/mathtermind/internal/testutil"
	"github.com/vytor/mathtermind/internal/testutil/mocks"
)

type DispatcherSuite struct {
	suite.Suite
	db    *sql.DB
	store repository.Store
	user  *models.User
}

func (s *DispatcherSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.store = sqlite.NewStore(s.db)
	s.user = testutil.CreateUser(s.T(), s.store.Repos(), "ada", 0)
}

func (s *DispatcherSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *DispatcherSuite) insertEvent(kind models.EventKind) models.ProgressEvent {
	e := models.NewProgressEvent(s.user.ID, kind, models.EventPayload{})
	s.Require().NoError(s.store.Repos().Events.Insert(context.Background(), &e))
	return e
}

func (s *DispatcherSuite) pending() []models.ProgressEvent {
	events, err := s.store.Repos().Events.Pending(context.Background(), 100, 0)
	s.Require().NoError(err)
	return events
}

func (s *DispatcherSuite) TestDeliversInConsumerOrder() {
	first := s.insertEvent(models.EventLessonCompleted)
	time.Sleep(2 * time.Millisecond)
	second := s.insertEvent(models.EventCourseCompleted)

	var calls []string
	rewards := &mocks.MockConsumer{ConsumerName: "rewards"}
	rewards.On("Handle", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		calls = append(calls, "rewards:"+string(args.Get(1).(models.ProgressEvent).Kind))
	})
	achievements := &mocks.MockConsumer{ConsumerName: "achievements"}
	achievements.On("Handle", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		calls = append(calls, "achievements:"+string(args.Get(1).(models.ProgressEvent).Kind))
	})

	d := outbox.NewDispatcher(s.store, 5, rewards, achievements)
	summary, err := d.Dispatch(context.Background())
	s.Require().NoError(err)
	s.Equal(outbox.Summary{Processed: 2}, summary)
	s.Equal([]string{
		"rewards:" + string(first.Kind),
		"achievements:" + string(first.Kind),
		"rewards:" + string(second.Kind),
		"achievements:" + string(second.Kind),
	}, calls)
	s.Empty(s.pending())

	summary, err = d.Dispatch(context.Background())
	s.Require().NoError(err)
	s.Equal(outbox.Summary{}, summary)
}

func (s *DispatcherSuite) TestRetriesOnlyFailedConsumers() {
	s.insertEvent(models.EventLessonCompleted)

	rewards := &mocks.MockConsumer{ConsumerName: "rewards"}
	rewards.On("Handle", mock.Anything, mock.Anything).Return(nil)
	achievements := &mocks.MockConsumer{ConsumerName: "achievements"}
	achievements.On("Handle", mock.Anything, mock.Anything).Return(errors.New("evaluator down")).Once()
	achievements.On("Handle", mock.Anything, mock.Anything).Return(nil).Once()

	d := outbox.NewDispatcher(s.store, 5, rewards, achievements)
	summary, err := d.Dispatch(context.Background())
	s.Require().NoError(err)
	s.Equal(outbox.Summary{Failed: 1}, summary)

	pending := s.pending()
	s.Require().Len(pending, 1)
	s.Equal(1, pending[0].Attempts)
	s.Equal(models.StringList{"rewards"}, pending[0].CompletedConsumers)
	s.Equal("evaluator down", pending[0].LastErrors["achievements"])
	s.Nil(pending[0].ProcessedAt)

	summary, err = d.Dispatch(context.Background())
	s.Require().NoError(err)
	s.Equal(outbox.Summary{Processed: 1}, summary)
	s.Empty(s.pending())

	rewards.AssertNumberOfCalls(s.T(), "Handle", 1)
	achievements.AssertNumberOfCalls(s.T(), "Handle", 2)
}

func (s *DispatcherSuite) TestStopsAfterMaxAttempts() {
	s.insertEvent(models.EventContentCompleted)

	failing := &mocks.MockConsumer{ConsumerName: "rewards"}
	failing.On("Handle", mock.Anything, mock.Anything).Return(errors.New("nope"))

	d := outbox.NewDispatcher(s.store, 2, failing)
	for i := 0; i < 3; i++ {
		_, err := d.Dispatch(context.Background())
		s.Require().NoError(err)
	}
	failing.AssertNumberOfCalls(s.T(), "Handle", 2)
}

func (s *DispatcherSuite) TestPanickingConsumerIsRecordedAsFailure() {
	s.insertEvent(models.EventLessonCompleted)

	panicking := &mocks.MockConsumer{ConsumerName: "rewards"}
	panicking.On("Handle", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("nil map")
	}).Return(nil)

	summary, err := outbox.NewDispatcher(s.store, 5, panicking).Dispatch(context.Background())
	s.Require().NoError(err)
	s.Equal(1, summary.Failed)

	pending := s.pending()
	s.Require().Len(pending, 1)
	s.Contains(pending[0].LastErrors["rewards"], "panicked")
}

func (s *DispatcherSuite) TestSweeperDispatchesOnInterval() {
	s.insertEvent(models.EventLessonCompleted)

	done := make(chan struct{})
	consumer := &mocks.MockConsumer{ConsumerName: "rewards"}
	consumer.On("Handle", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		close(done)
	}).Once()

	sweeper := outbox.NewSweeper(outbox.NewDispatcher(s.store, 5, consumer), 10*time.Millisecond)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.Fail("sweeper did not dispatch")
	}
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}
