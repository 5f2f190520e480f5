package services

import (
	"context"
	"fmt"
	"strings"

	"contabile/internal/core"
	"contabile/internal/storage"
)

// CardService manages credit cards and the payments made against them.
type CardService struct {
	store    *storage.Store
	onChange func(ownerID int64)
}

func NewCardService(store *storage.Store) *CardService {
	return &CardService{store: store}
}

func (s *CardService) OnChange(fn func(ownerID int64)) {
	s.onChange = fn
}

func (s *CardService) Create(ctx context.Context, ownerID int64, name string) (core.Card, error) {
	card := core.Card{OwnerID: ownerID, Name: strings.TrimSpace(name)}
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}
	return s.store.CreateCard(ctx, card)
}

func (s *CardService) Update(ctx context.Context, ownerID, id int64, name string) (core.Card, error) {
	card := core.Card{ID: id, OwnerID: ownerID, Name: strings.TrimSpace(name)}
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := s.store.UpdateCard(ctx, card); err != nil {
		return core.Card{}, err
	}
	return card, nil
}

func (s *CardService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.store.DeleteCard(ctx, ownerID, id)
}

func (s *CardService) List(ctx context.Context, ownerID int64) ([]core.Card, error) {
	return s.store.ListCards(ctx, ownerID)
}

// PaymentInput carries the raw textual fields of a candidate card
// payment.
type PaymentInput struct {
	CardID int64
	Amount string
	Date   string
	Notes  string
}

// CreatePayment records money paid toward a card's bill. Payments
// reduce the card's net position but never count as expenses.
func (s *CardService) CreatePayment(ctx context.Context, ownerID int64, in PaymentInput) (core.CardPayment, error) {
	cents, err := core.ParseAmountToCents(in.Amount)
	if err != nil {
		return core.CardPayment{}, err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.CardPayment{}, err
	}

	cards, err := s.store.ListCards(ctx, ownerID)
	if err != nil {
		return core.CardPayment{}, fmt.Errorf("load cards: %w", err)
	}
	var card core.Card
	for _, c := range cards {
		if c.ID == in.CardID {
			card = c
			break
		}
	}
	if card.ID == 0 {
		return core.CardPayment{}, &core.ValidationError{
			Code:   core.ErrCardNotFound.Code,
			Field:  "card_id",
			Detail: fmt.Sprintf("card %d not found", in.CardID),
		}
	}

	p := core.CardPayment{
		OwnerID: ownerID,
		CardID:  card.ID,
		Card:    card.Name,
		Amount:  core.Money{Cents: cents},
		Date:    date,
		Notes:   strings.TrimSpace(in.Notes),
	}
	if err := p.Validate(); err != nil {
		return core.CardPayment{}, err
	}

	p, err = s.store.CreateCardPayment(ctx, p)
	if err != nil {
		return core.CardPayment{}, err
	}
	if s.onChange != nil {
		s.onChange(ownerID)
	}
	return p, nil
}

func (s *CardService) DeletePayment(ctx context.Context, ownerID, id int64) error {
	if err := s.store.DeleteCardPayment(ctx, ownerID, id); err != nil {
		return err
	}
	if s.onChange != nil {
		s.onChange(ownerID)
	}
	return nil
}

func (s *CardService) ListPayments(ctx context.Context, ownerID int64, year, month int, cardID int64) ([]core.CardPayment, error) {
	return s.store.ListCardPayments(ctx, ownerID, year, month, cardID)
}
