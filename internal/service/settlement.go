package service

import (
	"context"

	"github.com/numera/numera/internal/api/dto"
	"github.com/numera/numera/internal/domain/document"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
	"github.com/shopspring/decimal"
)

// SettlementService reconciles receipts against open invoices. Every
// settlement runs inside one store transaction; the balance invariant
// (paid + remaining == amount) holds after every committed write.
type SettlementService interface {
	// SettleSingleInvoice applies one payment against one invoice. Paid
	// amount is clamped at the invoice total, the payment status is
	// re-derived and the receipt number joins the invoice's receipt set.
	// There is no eligibility precondition; commit conflicts are retried
	// transparently up to the store budget.
	SettleSingleInvoice(ctx context.Context, req dto.SettleSingleInvoiceRequest) (*dto.SettlementResponse, error)

	// SettleMultipleInvoices pays a batch of invoices in full with one
	// receipt, all or nothing. An invoice with nothing outstanding at read
	// time fails the whole batch with a conflict that is never retried, and
	// no invoice is modified.
	SettleMultipleInvoices(ctx context.Context, req dto.SettleMultipleInvoicesRequest) (*dto.SettlementResponse, error)

	// ValidateSettlementSelection checks a proposed selection before any
	// receipt is issued. Business rule failures come back as an invalid
	// verdict with a message, not as errors.
	ValidateSettlementSelection(ctx context.Context, req dto.ValidateSettlementRequest) (*dto.ValidateSettlementResponse, error)
}

type settlementService struct {
	ServiceParams
}

func NewSettlementService(params ServiceParams) SettlementService {
	return &settlementService{
		ServiceParams: params,
	}
}

func (s *settlementService) SettleSingleInvoice(ctx context.Context, req dto.SettleSingleInvoiceRequest) (*dto.SettlementResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *document.LedgerDocument
	err := s.Store.WithTx(ctx, func(ctx context.Context) error {
		invoice, err := s.DocumentRepo.Get(ctx, req.CustomerID, req.InvoiceNumber)
		if err != nil {
			return err
		}

		if err := invoice.ApplyPayment(req.PaymentAmount, req.ReceiptNumber); err != nil {
			return ierr.WithError(err).
				WithHintf("The payment cannot be applied to %s", req.InvoiceNumber).
				Mark(ierr.ErrValidation)
		}

		if err := s.DocumentRepo.Update(ctx, invoice); err != nil {
			return err
		}

		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("settled invoice",
		"customer_id", req.CustomerID,
		"invoice_number", req.InvoiceNumber,
		"receipt_number", req.ReceiptNumber,
		"payment_amount", req.PaymentAmount,
		"payment_status", updated.PaymentStatus,
	)
	s.publishEvent(ctx, req.CustomerID, req.ReceiptNumber, []string{req.InvoiceNumber})

	return dto.NewSettlementResponse(req.ReceiptNumber, []*document.LedgerDocument{updated}), nil
}

func (s *settlementService) SettleMultipleInvoices(ctx context.Context, req dto.SettleMultipleInvoicesRequest) (*dto.SettlementResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated []*document.LedgerDocument
	err := s.Store.WithTx(ctx, func(ctx context.Context) error {
		updated = nil

		// The receipt participates in the transaction so its amount is
		// still the verified one when the batch commits
		receipt, err := s.DocumentRepo.Get(ctx, req.CustomerID, req.ReceiptNumber)
		if err != nil {
			return err
		}
		if receipt.DocumentType != types.DocumentTypeReceipt {
			return ierr.NewError("settlement document is not a receipt").
				WithHintf("%s is a %s; invoices can only be settled by receipts", req.ReceiptNumber, receipt.DocumentType).
				Mark(ierr.ErrValidation)
		}
		if receipt.Amount.Sub(req.ReceiptAmount).Abs().GreaterThan(types.AmountTolerance) {
			return ierr.NewError("receipt amount does not match the receipt on record").
				WithHintf("Receipt %s is recorded for %s, not %s", req.ReceiptNumber, receipt.Amount, req.ReceiptAmount).
				Mark(ierr.ErrValidation)
		}

		invoices := make([]*document.LedgerDocument, 0, len(req.InvoiceNumbers))
		total := decimal.Zero
		for _, number := range req.InvoiceNumbers {
			invoice, err := s.DocumentRepo.Get(ctx, req.CustomerID, number)
			if err != nil {
				return err
			}
			if invoice.DocumentType != types.DocumentTypeInvoice {
				return ierr.NewError("document is not an invoice").
					WithHintf("%s is a %s and cannot be settled", number, invoice.DocumentType).
					Mark(ierr.ErrValidation)
			}
			if !invoice.CanBeSettled() {
				return ierr.WithError(document.ErrInvoiceAlreadyPaid).
					WithHintf("Invoice %s is already paid; re-validate the selection and issue a new receipt", number).
					WithReportableDetails(map[string]any{
						"invoice_number": number,
						"receipt_number": req.ReceiptNumber,
					}).
					Mark(ierr.ErrVersionConflict)
			}
			invoices = append(invoices, invoice)
			total = total.Add(invoice.RemainingBalance)
		}

		// A concurrent partial payment between selection and settlement
		// shows up here as drift between the receipt total and what is
		// still outstanding
		if total.Sub(receipt.Amount).Abs().GreaterThan(types.AmountTolerance) {
			return ierr.NewError("receipt amount does not cover the selection").
				WithHintf("The selected invoices have %s outstanding, the receipt is for %s; re-validate the selection", total, receipt.Amount).
				WithReportableDetails(map[string]any{
					"outstanding_total": total.String(),
					"receipt_amount":    receipt.Amount.String(),
				}).
				Mark(ierr.ErrVersionConflict)
		}

		for _, invoice := range invoices {
			if err := invoice.SettleInFull(req.ReceiptNumber); err != nil {
				return ierr.WithError(err).
					WithHintf("Invoice %s cannot be settled", invoice.DocumentNumber).
					Mark(ierr.ErrValidation)
			}
			if err := s.DocumentRepo.Update(ctx, invoice); err != nil {
				return err
			}
		}

		updated = invoices
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("settled invoice batch",
		"customer_id", req.CustomerID,
		"receipt_number", req.ReceiptNumber,
		"invoice_numbers", req.InvoiceNumbers,
		"receipt_amount", req.ReceiptAmount,
	)
	s.publishEvent(ctx, req.CustomerID, req.ReceiptNumber, req.InvoiceNumbers)

	return dto.NewSettlementResponse(req.ReceiptNumber, updated), nil
}

func (s *settlementService) ValidateSettlementSelection(ctx context.Context, req dto.ValidateSettlementRequest) (*dto.ValidateSettlementResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	invalid := func(message string) *dto.ValidateSettlementResponse {
		return &dto.ValidateSettlementResponse{Valid: false, Message: message}
	}

	var (
		customerName string
		currency     string
		total        = decimal.Zero
	)
	for i, number := range req.InvoiceNumbers {
		invoice, err := s.DocumentRepo.Get(ctx, req.CustomerID, number)
		if err != nil {
			if ierr.IsNotFound(err) {
				return invalid("invoice " + number + " was not found"), nil
			}
			return nil, err
		}

		if invoice.DocumentType != types.DocumentTypeInvoice {
			return invalid("document " + number + " is not an invoice"), nil
		}
		if !invoice.RemainingBalance.GreaterThan(decimal.Zero) {
			return invalid("invoice " + number + " is already paid"), nil
		}

		if i == 0 {
			customerName = invoice.CustomerName
			currency = invoice.Currency
		} else {
			if invoice.CustomerName != customerName {
				return invalid("invoices belong to different customers"), nil
			}
			if !types.IsMatchingCurrency(invoice.Currency, currency) {
				return invalid("invoices are priced in different currencies"), nil
			}
		}

		total = total.Add(invoice.RemainingBalance)
	}

	if total.Sub(req.ReceiptAmount).Abs().GreaterThan(types.AmountTolerance) {
		return invalid("receipt amount " + req.ReceiptAmount.String() + " does not match the outstanding total " + total.String()), nil
	}

	return &dto.ValidateSettlementResponse{Valid: true}, nil
}

// publishEvent emits a post commit settlement event. Publishing is best
// effort; a failure is logged, never surfaced to the caller.
func (s *settlementService) publishEvent(ctx context.Context, customerID, receiptNumber string, invoiceNumbers []string) {
	if s.EventPublisher == nil {
		return
	}

	event := types.NewLedgerEvent(types.LedgerEventInvoicesSettled, customerID, receiptNumber, invoiceNumbers)
	event.RequestID = types.GetRequestID(ctx)
	if err := s.EventPublisher.PublishLedgerEvent(ctx, event); err != nil {
		s.Logger.Errorw("failed to publish ledger event",
			"event_name", types.LedgerEventInvoicesSettled,
			"receipt_number", receiptNumber,
			"error", err,
		)
	}
}
