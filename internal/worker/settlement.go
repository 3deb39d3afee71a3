package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	service "cardshop/internal/domain/service/order"
	"cardshop/pkg/application/modules"
	"cardshop/pkg/contextx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	TaskTypeSettleOrder = "order:settle"
	QueueSettlements    = "settlements"
)

//nolint:gochecknoglobals
var settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cardshop_settlements_total",
	Help: "Settlement firings by outcome.",
}, []string{"outcome"})

type settleOrderPayload struct {
	OrderID string `json:"order_id"`
}

// Scheduler кладёт отложенную задачу подтверждения в asynq.
// Задержка имитирует латентность колбэка платёжного шлюза.
type Scheduler struct {
	client *asynq.Client
	delay  time.Duration
}

func NewScheduler(redisOpt asynq.RedisClientOpt, delay time.Duration) *Scheduler {
	return &Scheduler{
		client: asynq.NewClient(redisOpt),
		delay:  delay,
	}
}

// Schedule ставит одно срабатывание без повторов: обработчик идемпотентен,
// а заглушка шлюза ретраев не делает.
func (s *Scheduler) Schedule(ctx context.Context, orderID string) error {
	payload, err := json.Marshal(settleOrderPayload{OrderID: orderID})
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	task := asynq.NewTask(TaskTypeSettleOrder, payload)

	info, err := s.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueSettlements),
		asynq.ProcessIn(s.delay),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return fmt.Errorf("asynq.Enqueue: %w", err)
	}

	logger(ctx).Info("settlement scheduled",
		slog.String("order_id", orderID),
		slog.String("task_id", info.ID),
		slog.Duration("delay", s.delay),
	)

	return nil
}

func (s *Scheduler) Close() error {
	return s.client.Close()
}

type settler interface {
	Settle(ctx context.Context, orderID string) (service.SettleOutcome, error)
}

// SettlementHandler адаптирует сервис заказов в обработчик asynq-задач.
type SettlementHandler struct {
	orders settler
}

func NewSettlementHandler(orders settler) SettlementHandler {
	return SettlementHandler{orders: orders}
}

func (h SettlementHandler) AsynqHandler() modules.AsynqHandler {
	return modules.AsynqHandler{
		Pattern: TaskTypeSettleOrder,
		Handle:  h.Handle,
	}
}

func (h SettlementHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload settleOrderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Нечитаемую задачу ретраить бессмысленно
		return fmt.Errorf("json.Unmarshal: %v: %w", err, asynq.SkipRetry)
	}

	outcome, err := h.orders.Settle(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("orders.Settle: %w", err)
	}

	settlementsTotal.WithLabelValues(string(outcome)).Inc()

	logger(ctx).Info("settlement fired",
		slog.String("order_id", payload.OrderID),
		slog.String("outcome", string(outcome)),
	)

	return nil
}
