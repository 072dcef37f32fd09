package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	IdentityRepository    *IdentityRepository
	RoleRepository        *RoleRepository
	StudentRepository     *StudentRepository
	ProgramRepository     *ProgramRepository
	DocumentRepository    *DocumentRepository
	ApplicationRepository *ApplicationRepository
	ChatRepository        *ChatRepository
	AccountRepository     *AccountRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		IdentityRepository:    NewIdentityRepository(db),
		RoleRepository:        NewRoleRepository(db),
		StudentRepository:     NewStudentRepository(db),
		ProgramRepository:     NewProgramRepository(db),
		DocumentRepository:    NewDocumentRepository(db),
		ApplicationRepository: NewApplicationRepository(db),
		ChatRepository:        NewChatRepository(db),
		AccountRepository:     NewAccountRepository(db),
	}
}
