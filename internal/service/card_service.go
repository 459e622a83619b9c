package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-idcard/internal/card"
	"github.com/noah-isme/sma-idcard/internal/models"
	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

// EmptyStateMessage is shown when no student has been registered.
const EmptyStateMessage = "No student data found. Please register a student first."

var viewSlots = []string{models.ViewCurrent, models.ViewPrevious}

type historyReader interface {
	LoadHistory(ctx context.Context) models.RecordHistory
}

type currentTemplateReader interface {
	Current(ctx context.Context) models.Template
}

// CardDeck is the rendered set of views for the current template.
type CardDeck struct {
	Template models.Template `json:"template"`
	Views    []card.View     `json:"views"`
}

// CardService renders the current and previous records.
type CardService struct {
	records   historyReader
	templates currentTemplateReader
	logger    *zap.Logger
}

// NewCardService constructs the service.
func NewCardService(records historyReader, templates currentTemplateReader, logger *zap.Logger) *CardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CardService{records: records, templates: templates, logger: logger}
}

// Views renders one view per stored record, newest first.
func (s *CardService) Views(ctx context.Context) (*CardDeck, error) {
	history := s.records.LoadHistory(ctx)
	tpl := s.templates.Current(ctx)
	deck := &CardDeck{Template: tpl, Views: make([]card.View, 0, history.Len())}
	for i, record := range history.Records() {
		view, err := s.render(record, tpl, viewSlots[i])
		if err != nil {
			return nil, err
		}
		deck.Views = append(deck.Views, view)
	}
	return deck, nil
}

// Locate renders the view with the given id. Unknown ids and empty slots are not found.
func (s *CardService) Locate(ctx context.Context, viewID string) (card.View, error) {
	for i, slot := range viewSlots {
		if slot != viewID {
			continue
		}
		record, ok := s.records.LoadHistory(ctx).At(i)
		if !ok {
			break
		}
		return s.render(record, s.templates.Current(ctx), slot)
	}
	return card.View{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("card view %q not found", viewID))
}

func (s *CardService) render(record models.StudentRecord, tpl models.Template, viewID string) (card.View, error) {
	view, err := card.Render(record, tpl)
	if err != nil {
		return card.View{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render card")
	}
	view.ID = viewID
	return view, nil
}
