package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/customer-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "THB"

// CustomerInput carries customer fields; nil pointers are left unchanged on update
type CustomerInput struct {
	Code            *string
	Name            *string
	ContactPerson   *string
	Email           *string
	Phone           *string
	BillingAddress  *string
	ShippingAddress *string
	City            *string
	Country         *string
	PostalCode      *string
	TaxID           *string
	PaymentTerms    *string
	Currency        *string
	CreditLimit     *decimal.Decimal
	Notes           *string
	IsActive        *bool
}

// CustomerFilter narrows List
type CustomerFilter struct {
	Search string
	Active *bool
	Page   int
	Limit  int
}

func (f CustomerFilter) page() (page, limit int) {
	page, limit = f.Page, f.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// CustomerService manages the tenant's customers
type CustomerService struct {
	db *gorm.DB
}

// NewCustomerService creates a customer service
func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{db: db}
}

// Create registers a customer for the tenant
func (s *CustomerService) Create(ctx context.Context, tenantID, userID uint, in CustomerInput) (*model.Customer, error) {
	if in.Code == nil || strings.TrimSpace(*in.Code) == "" || in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperror.Validation("code and name are required")
	}

	customer := &model.Customer{
		TenantID:    tenantID,
		Currency:    defaultCurrency,
		CreditLimit: decimal.Zero,
		IsActive:    true,
		CreatedBy:   userID,
		UpdatedBy:   userID,
	}
	if err := apply(customer, in); err != nil {
		return nil, err
	}

	if err := database.FromContext(ctx, s.db).Create(customer).Error; err != nil {
		if database.IsDuplicate(err) {
			return nil, apperror.Conflict("customer with code %s already exists", customer.Code)
		}
		return nil, apperror.Internal(err, "failed to create customer")
	}

	logger.FromContext(ctx).Info("Customer created",
		zap.Uint("customer_id", customer.ID),
		zap.String("code", customer.Code),
		zap.Uint("tenant_id", tenantID))
	return customer, nil
}

// Get returns a customer of the tenant
func (s *CustomerService) Get(ctx context.Context, tenantID, id uint) (*model.Customer, error) {
	var customer model.Customer
	err := database.FromContext(ctx, s.db).Where("id = ? AND tenant_id = ?", id, tenantID).First(&customer).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("customer not found")
		}
		return nil, apperror.Internal(err, "failed to load customer")
	}
	return &customer, nil
}

// List returns one page of the tenant's customers and the total count
func (s *CustomerService) List(ctx context.Context, tenantID uint, filter CustomerFilter) ([]model.Customer, int64, error) {
	q := database.FromContext(ctx, s.db).Model(&model.Customer{}).Where("tenant_id = ?", tenantID)
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to count customers")
	}
	page, limit := filter.page()
	customers := []model.Customer{}
	if err := q.Order("id").Limit(limit).Offset((page - 1) * limit).Find(&customers).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to list customers")
	}
	return customers, total, nil
}

// Update applies the non-nil fields of in
func (s *CustomerService) Update(ctx context.Context, tenantID, userID, id uint, in CustomerInput) (*model.Customer, error) {
	customer, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(customer, in); err != nil {
		return nil, err
	}
	customer.UpdatedBy = userID

	if err := database.FromContext(ctx, s.db).Save(customer).Error; err != nil {
		if database.IsDuplicate(err) {
			return nil, apperror.Conflict("customer with code %s already exists", customer.Code)
		}
		return nil, apperror.Internal(err, "failed to update customer")
	}
	return customer, nil
}

// Delete soft-deletes a customer
func (s *CustomerService) Delete(ctx context.Context, tenantID, id uint) error {
	res := database.FromContext(ctx, s.db).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Customer{})
	if res.Error != nil {
		return apperror.Internal(res.Error, "failed to delete customer")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("customer not found")
	}
	return nil
}

func apply(c *model.Customer, in CustomerInput) error {
	if in.Code != nil {
		if strings.TrimSpace(*in.Code) == "" {
			return apperror.Validation("code must not be empty")
		}
		c.Code = strings.TrimSpace(*in.Code)
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return apperror.Validation("name must not be empty")
		}
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		if *in.Email != "" && !strings.Contains(*in.Email, "@") {
			return apperror.Validation("invalid email %q", *in.Email)
		}
		c.Email = *in.Email
	}
	if in.Currency != nil {
		if len(*in.Currency) != 3 {
			return apperror.Validation("currency must be an ISO 4217 code")
		}
		c.Currency = strings.ToUpper(*in.Currency)
	}
	if in.CreditLimit != nil {
		if in.CreditLimit.IsNegative() {
			return apperror.Validation("credit_limit must not be negative")
		}
		c.CreditLimit = in.CreditLimit.Round(2)
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.ContactPerson, in.ContactPerson)
	set(&c.Phone, in.Phone)
	set(&c.BillingAddress, in.BillingAddress)
	set(&c.ShippingAddress, in.ShippingAddress)
	set(&c.City, in.City)
	set(&c.Country, in.Country)
	set(&c.PostalCode, in.PostalCode)
	set(&c.TaxID, in.TaxID)
	set(&c.PaymentTerms, in.PaymentTerms)
	set(&c.Notes, in.Notes)
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}
