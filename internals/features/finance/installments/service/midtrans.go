// file: internals/features/finance/installments/service/midtrans.go
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bytedance/sonic"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"magangku_backend/internals/features/finance/installments/money"
)

/* =========================================================
   Checkout gateway (opsional) untuk invoice cicilan
========================================================= */

type CustomerInput struct {
	FullName string
	Email    string
	Phone    string
}

type CheckoutRequest struct {
	OrderID     string
	Amount      money.Amount
	Description string
	Customer    CustomerInput
}

type CheckoutResult struct {
	Token       string
	RedirectURL string
	Payload     []byte
}

type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error)
}

type MidtransCheckout struct {
	client snap.Client
}

// NewMidtransCheckout: useProduction=true untuk Production, false untuk Sandbox.
func NewMidtransCheckout(serverKey string, useProduction bool) *MidtransCheckout {
	m := &MidtransCheckout{}
	if useProduction {
		m.client.New(serverKey, midtrans.Production)
	} else {
		m.client.New(serverKey, midtrans.Sandbox)
	}
	return m
}

// grossAmount: Snap hanya menerima rupiah utuh. Nominal pecahan ditolak (bukan dibulatkan)
// supaya yang ditagih gateway sama persis dengan nominal invoice.
func grossAmount(a money.Amount) (int64, error) {
	d := a.Decimal()
	if !d.IsPositive() {
		return 0, newValidation("amount", "checkout amount must be positive")
	}
	if !d.IsInteger() {
		return 0, newValidation("amount", "checkout amount "+a.String()+" is not a whole rupiah amount")
	}
	return d.IntPart(), nil
}

// CreateCheckout membuat Snap transaction untuk satu invoice.
func (m *MidtransCheckout) CreateCheckout(_ context.Context, req CheckoutRequest) (CheckoutResult, error) {
	gross, err := grossAmount(req.Amount)
	if err != nil {
		return CheckoutResult{}, err
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return CheckoutResult{}, errors.New("order id is required")
	}

	first, last := splitName(req.Customer.FullName)
	sr := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: first,
			LName: last,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       req.OrderID,
				Price:    gross,
				Qty:      1,
				Name:     truncate(firstNonEmpty(req.Description, "Internship installment"), 50),
				Category: "INSTALLMENT",
			},
		},
	}

	resp, mErr := m.client.CreateTransaction(sr)
	if mErr != nil {
		return CheckoutResult{}, mErr
	}
	payload, _ := sonic.Marshal(resp)
	return CheckoutResult{Token: resp.Token, RedirectURL: resp.RedirectURL, Payload: payload}, nil
}

/* =========================================================
   Utils
========================================================= */

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func firstNonEmpty(s, def string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return def
}
