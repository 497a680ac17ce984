package list_products

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/ledgerclient"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/filter_products"
	"github.com/light-bringer/worktrack-service/internal/app/product/repo"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/load_product"
	"github.com/light-bringer/worktrack-service/internal/pkg/clock"
	"github.com/light-bringer/worktrack-service/internal/pkg/logging"
)

var writer = contracts.CallOptions{ActingIdentity: "0xoperator"}

func setup(t *testing.T, count int) (*Query, *ledgerclient.Client, *repo.MemoryLedger) {
	t.Helper()
	store := repo.NewMemoryLedger(clock.NewMockClock(time.Unix(1700000000, 0)), domain.AllowRegression)
	client := ledgerclient.NewClient(store, ledgerclient.DefaultConfig(), logging.NewNop(), nil)
	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))

	for i := 0; i < count; i++ {
		company := "Acme"
		if i%2 == 1 {
			company = "Globex"
		}
		require.NoError(t, client.CreateProduct(ctx, writer, contracts.NewProductRecord{
			InternalPO:  fmt.Sprintf("PO-%d", i),
			ExternalPO:  "EXT",
			Name:        "Part",
			CompanyName: company,
			Units:       []domain.UnitName{domain.UnitMilling},
		}))
	}

	loader := load_product.NewInteractor(client, logging.NewNop(), nil)
	return NewQuery(client, loader, 3, logging.NewNop()), client, store
}

func pos(products []*domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.InternalPO()
	}
	return out
}

func TestListProducts_PreservesCatalogOrder(t *testing.T) {
	q, _, _ := setup(t, 7)

	resp, err := q.Execute(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"PO-0", "PO-1", "PO-2", "PO-3", "PO-4", "PO-5", "PO-6"}, pos(resp.Products))
	assert.Equal(t, []string{"Acme", "Globex"}, resp.Companies)
	assert.Empty(t, resp.Failures)
}

func TestListProducts_Filters(t *testing.T) {
	q, client, _ := setup(t, 4)
	_, err := client.UpdateUnitStatus(context.Background(), writer, "PO-2", domain.UnitMilling, domain.StatusDone)
	require.NoError(t, err)
	_, err = client.CheckProductCompletion(context.Background(), writer, "PO-2")
	require.NoError(t, err)

	resp, err := q.Execute(context.Background(), &Request{Spec: filter_products.Spec{Company: "Acme"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"PO-0", "PO-2"}, pos(resp.Products))
	assert.Equal(t, []string{"Acme", "Globex"}, resp.Companies)

	resp, err = q.Execute(context.Background(), &Request{Spec: filter_products.Spec{CompletedOnly: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"PO-2"}, pos(resp.Products))
}

func TestListProducts_RecordsFailures(t *testing.T) {
	q, _, store := setup(t, 3)
	store.SetFault(func(ctx context.Context, op, po string, unit domain.UnitName) error {
		if po == "PO-1" && op == "GetProductDetails" {
			return domain.NewLedgerError(op, domain.KindRejected, "corrupt record", nil)
		}
		if po == "PO-2" && op == "GetUnitStatus" {
			return fmt.Errorf("garbled")
		}
		return nil
	})

	resp, err := q.Execute(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"PO-0", "PO-2"}, pos(resp.Products))
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "PO-1", resp.Failures[0].InternalPO)
	assert.Equal(t, 1, resp.Partial)
}

func TestListProducts_CatalogFailure(t *testing.T) {
	q, _, store := setup(t, 1)
	store.SetOnline(false)

	_, err := q.Execute(context.Background(), &Request{})
	assert.ErrorIs(t, err, domain.ErrConnection)
}
