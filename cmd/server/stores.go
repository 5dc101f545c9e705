package main

import (
	"log/slog"

	"homeroom/internal/identity"
	"homeroom/internal/identity/directory"
	invitestore "homeroom/internal/invitation/store/invite"
	codestore "homeroom/internal/joincode/store/code"
	assignmentstore "homeroom/internal/member/store/assignment"
	profilestore "homeroom/internal/member/store/profile"
	"homeroom/internal/platform/database"
	schoolstore "homeroom/internal/school/store/school"
)

// buildStores picks the persistence backend once. A nil pool means no
// database is configured and everything lives in process memory.
func buildStores(pool *database.Pool, log *slog.Logger) stores {
	if pool == nil {
		return stores{
			schools:     schoolstore.NewInMemory(),
			codes:       codestore.NewInMemory(),
			profiles:    profilestore.NewInMemory(),
			assignments: assignmentstore.NewInMemory(),
			invites:     invitestore.NewInMemory(),
			gateway:     identity.NewResilientGateway(directory.NewInMemory(), log),
		}
	}

	db := pool.DB()
	return stores{
		schools:     schoolstore.NewPostgres(db),
		codes:       codestore.NewPostgres(db),
		profiles:    profilestore.NewPostgres(db),
		assignments: assignmentstore.NewPostgres(db),
		invites:     invitestore.NewPostgres(db),
		gateway:     identity.NewResilientGateway(directory.NewPostgres(db), log),
	}
}
