package seed

import (
	"context"

	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// paperFactory builds realistic concept papers through the same service path
// the API uses, so tracking numbers and validation behave like production.
type paperFactory struct {
	papers *service.PaperService
}

func newPaperFactory(db *gorm.DB) *paperFactory {
	return &paperFactory{
		papers: service.NewPaperService(db,
			repository.NewPaperRepository(db),
			repository.NewAttachmentRepository(db),
			nil),
	}
}

var natures = []models.NatureOfRequest{
	models.NatureRegular,
	models.NatureRegular,
	models.NatureUrgent,
	models.NatureEmergency,
}

func (f *paperFactory) create(ctx context.Context, requisitioner *models.User) (*models.ConceptPaper, error) {
	return f.papers.CreatePaper(ctx, service.CreatePaperInput{
		RequisitionerID:  requisitioner.ID,
		Department:       requisitioner.Department,
		Title:            gofakeit.Sentence(6),
		NatureOfRequest:  natures[gofakeit.Number(0, len(natures)-1)],
		StudentsInvolved: gofakeit.Bool(),
	})
}
