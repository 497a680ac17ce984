package create_product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
)

// Request contains the data needed to create a product.
// Units accepts canonical ("laser-cutting") or display ("Laser Cutting") names.
type Request struct {
	InternalPO  string                `validate:"required,po"`
	ExternalPO  string                `validate:"required,max=128"`
	Name        string                `validate:"required,max=256"`
	CompanyName string                `validate:"required,max=256"`
	FileHash    string                `validate:"omitempty,max=256"`
	Units       []string              `validate:"required,min=1,dive,unit"`
	Options     contracts.CallOptions `validate:"-"`
}

// Interactor handles the create product use case.
type Interactor struct {
	ledger   contracts.Ledger
	validate *validator.Validate
	logger   *slog.Logger
}

// NewInteractor creates a new create product interactor.
func NewInteractor(ledger contracts.Ledger, logger *slog.Logger) *Interactor {
	return &Interactor{
		ledger:   ledger,
		validate: newValidator(),
		logger:   logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("po", func(fl validator.FieldLevel) bool {
		return domain.ValidatePO(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("unit", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseUnitName(fl.Field().String())
		return err == nil
	})
	return v
}

// Execute validates the request and writes the product to the ledger.
// It returns the aggregate as it stands after creation.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*domain.Product, error) {
	// 1. Validate request
	if err := i.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	units := make([]domain.UnitName, 0, len(req.Units))
	for _, raw := range req.Units {
		name, err := domain.ParseUnitName(raw)
		if err != nil {
			return nil, err
		}
		units = append(units, name)
	}

	// 2. Build the aggregate
	product, err := domain.NewProduct(req.InternalPO, req.ExternalPO, req.Name, req.CompanyName, req.FileHash, units)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	// 3. Ensure a session
	if i.ledger.State() != contracts.Connected {
		if err := i.ledger.Connect(ctx); err != nil {
			return nil, err
		}
	}

	// 4. Write
	rec := contracts.NewProductRecord{
		InternalPO:  product.InternalPO(),
		ExternalPO:  product.ExternalPO(),
		Name:        product.Name(),
		CompanyName: product.CompanyName(),
		FileHash:    product.FileHash(),
		Units:       product.UnitNames(),
	}
	if err := i.ledger.CreateProduct(ctx, req.Options, rec); err != nil {
		if domain.KindOf(err) == domain.KindConnection {
			if cerr := i.ledger.Connect(ctx); cerr != nil {
				i.logger.Warn("reconnect failed", slog.String("internal_po", rec.InternalPO), slog.Any("error", cerr))
			}
		}
		return nil, err
	}

	i.logger.Info("product created",
		slog.String("internal_po", rec.InternalPO),
		slog.Int("units", len(rec.Units)))
	return product, nil
}

// validationError flattens validator output into an ErrInvalidInput.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, ", "))
}
