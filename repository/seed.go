package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stock-dashboard/config"
	"stock-dashboard/models"
)

const seedTimeLayout = "2006-01-02 15:04:05"

// Seed creates the demo accounts with their holdings and history. Seed
// trades are appended oldest first so that ListTrades returns them newest
// first. Users that already exist are left untouched.
func Seed(ctx context.Context, store Store, users []config.SeedUser, hash func(string) (string, error)) error {
	for _, su := range users {
		pw, err := hash(su.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", su.Username, err)
		}
		err = store.CreateUser(ctx, &models.User{
			Username:     su.Username,
			Email:        su.Email,
			PasswordHash: pw,
			CreatedAt:    time.Now(),
		})
		if err != nil {
			if isExists(err) {
				continue
			}
			return err
		}

		for _, sh := range su.Holdings {
			h := models.Holding{
				Symbol:    sh.Symbol,
				Shares:    decimal.NewFromFloat(sh.Shares),
				AvgPrice:  decimal.NewFromFloat(sh.AvgPrice),
				UpdatedAt: time.Now(),
			}
			if err := store.UpsertHolding(ctx, su.Username, h); err != nil {
				return err
			}
		}

		for i := len(su.Trades) - 1; i >= 0; i-- {
			trade, err := seedTrade(su.Username, su.Trades[i])
			if err != nil {
				return err
			}
			if err := store.AppendTrade(ctx, trade); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedTrade(username string, st config.SeedTrade) (*models.Trade, error) {
	side, ok := models.ParseTradeSide(st.Side)
	if !ok {
		return nil, fmt.Errorf("seed trade for %s: invalid side %q", username, st.Side)
	}
	at, err := time.ParseInLocation(seedTimeLayout, st.Date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("seed trade for %s: %w", username, err)
	}

	trade := models.NewTrade(username, st.Symbol, side, decimal.NewFromFloat(st.Quantity), decimal.NewFromFloat(st.Price))
	trade.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(username+"/"+st.Date+"/"+st.Symbol))
	trade.Status = models.TradeStatusExecuted
	trade.ExecutedAt = &at
	trade.CreatedAt = at
	return trade, nil
}
