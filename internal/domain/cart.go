package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newLineItemID() string {
	return uuid.NewString()
}

// CartEntry — позиция корзины: снимок услуги на момент добавления.
// Корзина живёт в быстром кэше с ограниченным TTL; источником правды при
// недоступности кэша служат позиции персистентного черновика заказа.
type CartEntry struct {
	ServiceID   string
	ServiceName string
	Qty         int32
	UnitPrice   decimal.Decimal
}

// CartFromItems восстанавливает логическое представление корзины из позиций
// черновика. Представление обязано совпадать с кэшированным.
func CartFromItems(items []LineItem) []CartEntry {
	entries := make([]CartEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, CartEntry{
			ServiceID:   item.ServiceID,
			ServiceName: item.ServiceName,
			Qty:         item.Qty,
			UnitPrice:   item.UnitPrice,
		})
	}
	SortCart(entries)
	return entries
}

// ItemsFromCart материализует корзину в позиции заказа.
func ItemsFromCart(entries []CartEntry, now time.Time) []LineItem {
	items := make([]LineItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, LineItem{
			ID:          newLineItemID(),
			ServiceID:   entry.ServiceID,
			ServiceName: entry.ServiceName,
			Qty:         entry.Qty,
			UnitPrice:   entry.UnitPrice,
			CreatedAt:   now,
		})
	}
	return items
}

// SortCart даёт детерминированный порядок позиций корзины.
func SortCart(entries []CartEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ServiceID < entries[j].ServiceID
	})
}
