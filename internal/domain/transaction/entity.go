package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// PageSize is fixed by the platform's admin listing.
const PageSize = 10

// UserType is a participant role on either side of a transaction.
type UserType string

const (
	UserTypeRider    UserType = "rider"
	UserTypeCustomer UserType = "customer"
	UserTypeAdmin    UserType = "admin"
	UserTypePlatform UserType = "platform"
)

var userTypeLabels = map[UserType]string{
	UserTypeRider:    "Rider",
	UserTypeCustomer: "Customer",
	UserTypeAdmin:    "Admin",
	UserTypePlatform: "Platform",
}

// Label returns the display label, or the raw value when unknown.
func (u UserType) Label() string {
	if l, ok := userTypeLabels[u]; ok {
		return l
	}
	return string(u)
}

// PaymentMethod is how the transaction was settled.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentWallet       PaymentMethod = "wallet"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

var paymentLabels = map[PaymentMethod]string{
	PaymentCash:         "Cash",
	PaymentCard:         "Card",
	PaymentWallet:       "Wallet",
	PaymentBankTransfer: "Bank Transfer",
}

// Label returns the display label, or the raw value when unknown.
func (p PaymentMethod) Label() string {
	if l, ok := paymentLabels[p]; ok {
		return l
	}
	return string(p)
}

// Transaction is a platform transaction record. The console never
// modifies one.
type Transaction struct {
	ID            string              `json:"id"`
	Amount        decimal.NullDecimal `json:"amount"`
	FromUserType  UserType            `json:"fromUserType,omitempty"`
	ToUserType    UserType            `json:"toUserType,omitempty"`
	PaymentMethod PaymentMethod       `json:"paymentMethod,omitempty"`
	OrderID       string              `json:"orderId,omitempty"`
	RiderID       string              `json:"riderId,omitempty"`
	ExtraFields   map[string]any      `json:"extraFields,omitempty"`
	CreatedAt     *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time          `json:"updatedAt,omitempty"`
}

// Page is one server-side page of transactions.
type Page struct {
	Items []Transaction `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// ListParams selects a server-side page.
type ListParams struct {
	Page    int
	Limit   int
	RiderID string
}
