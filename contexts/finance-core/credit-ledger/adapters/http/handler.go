package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"atelier/contexts/finance-core/credit-ledger/application"
	httptransport "atelier/contexts/finance-core/credit-ledger/transport/http"
)

type Handler struct {
	Ledger application.Service
	Logger *slog.Logger
}

func (h Handler) BalanceHandler(ctx context.Context, userID string) (httptransport.BalanceResponse, error) {
	balance, err := h.Ledger.Balance(ctx, userID)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{
		UserID:  userID,
		Balance: balance,
	}, nil
}

func (h Handler) HistoryHandler(ctx context.Context, userID string, limit int) (httptransport.HistoryResponse, error) {
	rows, err := h.Ledger.History(ctx, userID, limit)
	if err != nil {
		return httptransport.HistoryResponse{}, err
	}
	items := make([]httptransport.TransactionItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, httptransport.TransactionItem{
			TransactionID: row.TransactionID,
			Amount:        row.Amount,
			Type:          string(row.Type),
			Description:   row.Description,
			SubmissionID:  row.SubmissionID,
			CreatedAt:     row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return httptransport.HistoryResponse{
		UserID: userID,
		Items:  items,
	}, nil
}

func (h Handler) GrantHandler(ctx context.Context, req httptransport.GrantRequest) (httptransport.GrantResponse, error) {
	result, err := h.Ledger.GrantMonthly(ctx, req.UserID, req.Tier, req.Month)
	if err != nil {
		return httptransport.GrantResponse{}, err
	}
	return httptransport.GrantResponse{
		UserID:        req.UserID,
		Month:         req.Month,
		Amount:        result.Transaction.Amount,
		Balance:       result.Balance,
		TransactionID: result.Transaction.TransactionID,
	}, nil
}
