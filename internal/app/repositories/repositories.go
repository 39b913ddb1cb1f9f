package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository          *UserRepository
	PostRepository          *PostRepository
	ParticipationRepository *ParticipationRepository
	TokenRepository         *TokenRepository
	AccountRepository       *AccountRepository
}

// NewRepositories initializes all repositories
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:          NewUserRepository(pool),
		PostRepository:          NewPostRepository(pool),
		ParticipationRepository: NewParticipationRepository(pool),
		TokenRepository:         NewTokenRepository(pool),
		AccountRepository:       NewAccountRepository(pool),
	}
}
