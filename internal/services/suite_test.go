package services_test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/mathtermind/internal/cache"
	"github.com/vytor/mathtermind/internal/criteria"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/outbox"
	"github.com/vytor/mathtermind/internal/repository"
	"github.com/vytor/mathtermind/internal/repository/sqlite"
	"github.com/vytor/mathtermind/internal/services"
	"github.com/vytor/mathtermind/internal/testutil"
)

// serviceSuite wires the real services over an in-memory database.
type serviceSuite struct {
	suite.Suite
	ctx          context.Context
	db           *sql.DB
	store        repository.Store
	repos        repository.Repositories
	loader       *cache.Loader
	rewards      services.RewardsService
	achievements services.AchievementService
	progress     services.ProgressService
	dispatcher   *outbox.Dispatcher
	user         *models.User
}

func (s *serviceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewTestDB(s.T())
	s.store = sqlite.NewStore(s.db)
	s.repos = s.store.Repos()
	s.loader = cache.NewLoader(cache.NewMemory())

	s.rewards = services.NewRewardsService(s.store, s.loader)
	s.achievements = services.NewAchievementService(s.store, s.loader)
	s.dispatcher = outbox.NewDispatcher(s.store, outbox.DefaultMaxAttempts,
		services.NewRewardsConsumer(s.rewards),
		services.NewAchievementsConsumer(s.achievements, s.store),
	)
	s.progress = services.NewProgressService(s.store, s.loader, s.dispatcher)
	s.user = testutil.CreateUser(s.T(), s.repos, "learner", 0)
}

func (s *serviceSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *serviceSuite) reloadUser() *models.User {
	u, err := s.repos.Users.Get(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(u)
	return u
}

func (s *serviceSuite) addAchievement(name, category string, points int, c criteria.Criteria) *models.Achievement {
	a := &models.Achievement{
		Name:     name,
		Category: category,
		Points:   points,
		Criteria: criteria.Spec{Criteria: c},
	}
	s.Require().NoError(s.repos.Achievements.Insert(s.ctx, a))
	return a
}

func (s *serviceSuite) grantTriggers() []models.Trigger {
	grants, err := s.repos.Rewards.List(s.ctx, s.user.ID, 100)
	s.Require().NoError(err)
	out := make([]models.Trigger, 0, len(grants))
	for _, g := range grants {
		out = append(out, g.Trigger)
	}
	return out
}
