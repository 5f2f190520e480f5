package core

import "strings"

// TransactionInput carries the raw textual fields of a candidate
// transaction, before any normalization. Both the importer and the HTTP
// handlers funnel through ValidateTransaction, so every write path
// applies the same rules.
type TransactionInput struct {
	Kind        string
	Amount      string
	Date        string
	Category    string
	Card        string
	Description string
	Notes       string
	IsRecurring string
}

// CategoryInput carries the raw textual fields of a candidate category.
type CategoryInput struct {
	Name string
	Kind string
}

// CategoryIndex resolves category references for one owner. Resolution
// is by exact name; the folded form is kept only for duplicate checks.
type CategoryIndex struct {
	byName map[string][]Category
	folded map[string]bool // fold(name) + "/" + kind
}

func NewCategoryIndex(cats []Category) *CategoryIndex {
	ix := &CategoryIndex{
		byName: make(map[string][]Category, len(cats)),
		folded: make(map[string]bool, len(cats)),
	}
	for _, c := range cats {
		ix.byName[c.Name] = append(ix.byName[c.Name], c)
		ix.folded[Fold(c.Name)+"/"+string(c.Kind)] = true
	}
	return ix
}

// Resolve finds the owner's category with the given exact name and
// kind. A name that exists only under the other kind fails with
// ErrCategoryMismatch rather than ErrCategoryNotFound.
func (ix *CategoryIndex) Resolve(name string, kind Kind) (Category, error) {
	matches := ix.byName[name]
	if len(matches) == 0 {
		return Category{}, fieldError(ErrCategoryNotFound, "category", "category "+quote(name)+" not found")
	}
	for _, c := range matches {
		if c.Kind == kind {
			return c, nil
		}
	}
	return Category{}, fieldError(ErrCategoryMismatch, "category", "category "+quote(name)+" has a different kind")
}

// ContainsFold reports whether a category with the same folded name and
// kind already exists.
func (ix *CategoryIndex) ContainsFold(name string, kind Kind) bool {
	return ix.folded[Fold(name)+"/"+string(kind)]
}

// Add registers a category created mid-batch so later duplicate checks
// see it.
func (ix *CategoryIndex) Add(c Category) {
	ix.byName[c.Name] = append(ix.byName[c.Name], c)
	ix.folded[Fold(c.Name)+"/"+string(c.Kind)] = true
}

// CardIndex resolves card references by exact name for one owner.
type CardIndex struct {
	byName map[string]Card
}

func NewCardIndex(cards []Card) *CardIndex {
	ix := &CardIndex{byName: make(map[string]Card, len(cards))}
	for _, c := range cards {
		ix.byName[c.Name] = c
	}
	return ix
}

func (ix *CardIndex) Resolve(name string) (Card, error) {
	c, ok := ix.byName[name]
	if !ok {
		return Card{}, fieldError(ErrCardNotFound, "card", "card "+quote(name)+" not found")
	}
	return c, nil
}

var (
	truthyFlags = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "sim": true, "s": true}
	falsyFlags  = map[string]bool{"0": true, "false": true, "no": true, "n": true, "nao": true}
)

// ParseFlag parses a boolean-like textual value. The empty string is
// false.
func ParseFlag(s string) (bool, error) {
	f := Fold(s)
	switch {
	case f == "":
		return false, nil
	case truthyFlags[f]:
		return true, nil
	case falsyFlags[f]:
		return false, nil
	default:
		return false, fieldError(ErrInvalidFlag, "is_recurring", quote(s)+" is not a boolean value")
	}
}

// ValidateTransaction checks a raw input against the owner's categories
// and cards, returning the normalized transaction or a ValidationError.
// Validating the textual form of a normalized transaction yields the
// same record again.
func ValidateTransaction(in TransactionInput, cats *CategoryIndex, cards *CardIndex) (Transaction, error) {
	kind, ok := ParseKind(in.Kind)
	if !ok {
		return Transaction{}, fieldError(ErrInvalidKind, "kind", quote(in.Kind)+" is not a valid kind")
	}

	cents, err := ParseAmountToCents(in.Amount)
	if err != nil {
		return Transaction{}, err
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return Transaction{}, err
	}

	catName := strings.TrimSpace(in.Category)
	if catName == "" {
		return Transaction{}, fieldError(ErrCategoryNotFound, "category", "category is required")
	}
	category, err := cats.Resolve(catName, kind)
	if err != nil {
		return Transaction{}, err
	}

	t := Transaction{
		Kind:        kind,
		Amount:      Money{Cents: cents},
		Date:        date,
		CategoryID:  category.ID,
		Category:    category.Name,
		Description: strings.TrimSpace(in.Description),
		Notes:       strings.TrimSpace(in.Notes),
	}

	if cardName := strings.TrimSpace(in.Card); cardName != "" {
		if cards == nil {
			return Transaction{}, fieldError(ErrCardNotFound, "card", "card "+quote(cardName)+" not found")
		}
		card, err := cards.Resolve(cardName)
		if err != nil {
			return Transaction{}, err
		}
		t.CardID = card.ID
		t.Card = card.Name
	}

	recurring, err := ParseFlag(in.IsRecurring)
	if err != nil {
		return Transaction{}, err
	}
	t.IsRecurring = recurring

	return t, t.Validate()
}

// ValidateCategory checks a raw category input against the owner's
// existing categories.
func ValidateCategory(in CategoryInput, existing *CategoryIndex) (Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Category{}, fieldError(ErrInvalidName, "name", "category name is required")
	}

	kind, ok := ParseKind(in.Kind)
	if !ok {
		return Category{}, fieldError(ErrInvalidKind, "kind", quote(in.Kind)+" is not a valid kind")
	}

	if existing != nil && existing.ContainsFold(name, kind) {
		return Category{}, fieldError(ErrDuplicateCategory, "name", "category "+quote(name)+" already exists for this kind")
	}

	return Category{Name: name, Kind: kind}, nil
}

func quote(s string) string {
	return "\"" + s + "\""
}
