package models

// Lifecycle replaces a boolean trash flag. Records are never physically
// deleted; they move from ACTIVE to TRASHED.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "ACTIVE"
	LifecycleTrashed Lifecycle = "TRASHED"
)

// ProductType selects which type-specific payload a product carries.
type ProductType string

const (
	ProductTypeSimple   ProductType = "SIMPLE"
	ProductTypeVariable ProductType = "VARIABLE"
	ProductTypeGroup    ProductType = "GROUP"
	ProductTypeExternal ProductType = "EXTERNAL"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeSimple, ProductTypeVariable, ProductTypeGroup, ProductTypeExternal:
		return true
	}
	return false
}

// ProductStatus gates purchasability. Only ACTIVE products can be bought.
type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "ACTIVE"
	ProductStatusInactive   ProductStatus = "INACTIVE"
	ProductStatusDraft      ProductStatus = "DRAFT"
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive, ProductStatusDraft, ProductStatusOutOfStock:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// CustomerCancellable reports whether the owning customer may still cancel.
func (s OrderStatus) CustomerCancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodCard           PaymentMethod = "CARD"
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentMethodMobileBanking  PaymentMethod = "MOBILE_BANKING"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodMobileBanking:
		return true
	}
	return false
}

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)
