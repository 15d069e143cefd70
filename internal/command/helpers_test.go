package command

import "github.com/example/ec-orders/internal/infrastructure/store"

func storeFilter(userID string) store.OrderFilter {
	return store.OrderFilter{UserID: userID}
}
