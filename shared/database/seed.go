package database

import (
	"context"
	"errors"
	"time"

	"sales-arena/shared/models"
	"sales-arena/shared/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "123456"

// ErrAlreadySeeded means the demo admin already exists; the seed is skipped.
var ErrAlreadySeeded = errors.New("demo data already seeded")

// Seeder is the part of the store the demo seed needs.
type Seeder interface {
	CreateSeller(ctx context.Context, seller *models.Seller) error
}

type demoSeller struct {
	name       string
	email      string
	role       models.Role
	department string
	position   string
	daily      int64
	weekly     int64
	monthly    int64
}

var demoSellers = []demoSeller{
	{"Administrator", "admin@salesarena.dev", models.RoleAdmin, "Management", "Sales Director", 0, 0, 0},
	{"Ana Souza", "ana@salesarena.dev", models.RoleCollaborator, "Sales", "Account Executive", 500, 3000, 12000},
	{"Bruno Lima", "bruno@salesarena.dev", models.RoleCollaborator, "Sales", "Account Executive", 400, 2500, 10000},
	{"Carla Dias", "carla@salesarena.dev", models.RoleCollaborator, "Inside Sales", "Sales Representative", 300, 1800, 8000},
	{"Diego Alves", "diego@salesarena.dev", models.RoleCollaborator, "Inside Sales", "Sales Representative", 300, 1800, 8000},
}

// Seed creates the demo admin and collaborators. hash is the bcrypt hash of DemoPassword.
// It returns ErrAlreadySeeded when the admin account exists.
func Seed(ctx context.Context, st Seeder, hash string, now time.Time, log *zap.Logger) error {
	for i, d := range demoSellers {
		seller := &models.Seller{
			Name:         d.name,
			Email:        d.email,
			PasswordHash: hash,
			Role:         d.role,
			Department:   d.department,
			Position:     d.position,
			HireDate:     now.AddDate(-1, 0, 0),
			IsActive:     true,
			Level:        1,
			SalesTarget: models.SalesTarget{
				Daily:   decimal.NewFromInt(d.daily),
				Weekly:  decimal.NewFromInt(d.weekly),
				Monthly: decimal.NewFromInt(d.monthly),
			},
		}

		err := st.CreateSeller(ctx, seller)
		if errors.Is(err, store.ErrDuplicate) {
			if i == 0 {
				return ErrAlreadySeeded
			}
			continue
		}
		if err != nil {
			return err
		}
	}

	log.Info("Demo data seeded", zap.Int("sellers", len(demoSellers)))
	return nil
}
