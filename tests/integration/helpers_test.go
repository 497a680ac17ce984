//go:build integration

package integration

import "github.com/light-bringer/worktrack-service/internal/app/product/queries/list_events"

func listRequest(aggregateID string, limit int) *list_events.Request {
	return &list_events.Request{AggregateID: &aggregateID, Limit: limit}
}
