package app

import (
	"gorm.io/gorm"

	"github.com/docqa/docqa-backend/internal/data/repos"
	"github.com/docqa/docqa-backend/internal/pkg/logger"
)

type Repos struct {
	Document repos.DocumentRepo
	Session  repos.SessionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Document: repos.NewDocumentRepo(db, log),
		Session:  repos.NewSessionRepo(db, log),
	}
}
