package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	service "cardshop/internal/domain/service/order"
	"cardshop/internal/worker"
)

type fakeSettler struct {
	outcome service.SettleOutcome
	err     error
	calls   []string
}

func (f *fakeSettler) Settle(_ context.Context, orderID string) (service.SettleOutcome, error) {
	f.calls = append(f.calls, orderID)
	return f.outcome, f.err
}

func TestSettlementHandler(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	settler := &fakeSettler{outcome: service.SettleOutcomePaid}
	handler := worker.NewSettlementHandler(settler)

	task := asynq.NewTask(worker.TaskTypeSettleOrder, []byte(`{"order_id":"ord-1"}`))

	rq.NoError(handler.Handle(ctx, task))
	rq.Equal([]string{"ord-1"}, settler.calls)
}

func TestSettlementHandlerBadPayload(t *testing.T) {
	rq := require.New(t)

	settler := &fakeSettler{}
	handler := worker.NewSettlementHandler(settler)

	task := asynq.NewTask(worker.TaskTypeSettleOrder, []byte(`{broken`))

	err := handler.Handle(context.Background(), task)
	rq.Error(err)
	// Нечитаемый payload не должен уходить в ретраи
	rq.True(errors.Is(err, asynq.SkipRetry))
	rq.Empty(settler.calls)
}

func TestSettlementHandlerPropagatesError(t *testing.T) {
	rq := require.New(t)

	settler := &fakeSettler{err: errors.New("db down")}
	handler := worker.NewSettlementHandler(settler)

	task := asynq.NewTask(worker.TaskTypeSettleOrder, []byte(`{"order_id":"ord-2"}`))

	rq.Error(handler.Handle(context.Background(), task))
}
