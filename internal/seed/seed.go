// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"paperflow/internal/models"
	"paperflow/internal/service"
	"paperflow/internal/workflow"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls how much demo data gets created.
type Options struct {
	// Papers is the number of demo concept papers. Defaults to 12.
	Papers int
	// Advance randomly walks some papers forward through their stages.
	Advance bool
	// Password is the shared plaintext password for every seeded account.
	Password string
}

// Run populates the database with one account per workflow role and a batch
// of concept papers in various stages of approval. Existing usernames are
// left untouched, so Run is safe to repeat.
func Run(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())
	if opts.Papers <= 0 {
		opts.Papers = 12
	}
	if opts.Password == "" {
		opts.Password = "paperflow-demo"
	}

	ctx := context.Background()
	users, err := seedUsers(db, opts.Password)
	if err != nil {
		return err
	}

	workflows := service.NewWorkflowService(db, workflow.NewTemplateRegistry(), nil)
	papers := newPaperFactory(db)

	requisitioner := users[models.RoleRequisitioner]
	for i := 0; i < opts.Papers; i++ {
		paper, err := papers.create(ctx, requisitioner)
		if err != nil {
			return err
		}
		if _, err := workflows.InitializeWorkflow(ctx, paper.ID, requisitioner.ID); err != nil {
			return err
		}

		if opts.Advance {
			steps := rand.Intn(4)
			for step := 0; step < steps; step++ {
				if _, err := workflows.AdvanceStage(ctx, paper.ID, requisitioner.ID, gofakeit.Sentence(6), ""); err != nil {
					// Paper may have completed early on short templates.
					break
				}
			}
		}
	}

	log.Printf("Seeded %d users and %d papers", len(users), opts.Papers)
	return nil
}

// seedUsers creates one active account per workflow role, keyed by role.
func seedUsers(db *gorm.DB, password string) (map[models.Role]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make(map[models.Role]*models.User, len(models.ValidRoles))
	for role := range models.ValidRoles {
		user := &models.User{
			Username:   fmt.Sprintf("demo_%s", role),
			Email:      fmt.Sprintf("%s@paperflow.local", role),
			Password:   string(hash),
			FullName:   gofakeit.Name(),
			Role:       role,
			Department: gofakeit.RandomString([]string{"Engineering", "Nursing", "Business", "Arts and Sciences"}),
			IsActive:   true,
		}
		var existing models.User
		err := db.Where("username = ?", user.Username).First(&existing).Error
		switch {
		case err == nil:
			users[role] = &existing
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
		if err := db.Create(user).Error; err != nil {
			return nil, err
		}
		users[role] = user
	}
	return users, nil
}
