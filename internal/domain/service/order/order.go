package order

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/xid"
	"github.com/shopspring/decimal"

	"cardshop/internal/domain"
	"cardshop/internal/domain/entity"
	"cardshop/internal/domain/service/pricing"
	"cardshop/pkg/contextx"
	"cardshop/pkg/errcodes"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const variantCacheTTL = 5 * time.Minute

type VariantRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Variant, error)
	List(ctx context.Context, limit, offset int) ([]entity.Variant, error)
}

type KeyRepository interface {
	CountAvailable(ctx context.Context, variantID int64) (int, error)
	ListByOrder(ctx context.Context, orderID string) ([]entity.Key, error)
}

type OrderRepository interface {
	CreateRandom(ctx context.Context, order *entity.Order) error
	CreateSelection(ctx context.Context, order *entity.Order, keyID int64) (*entity.Key, error)
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	SettleSelection(ctx context.Context, orderID string, paidAt time.Time) error
	SettleRandom(ctx context.Context, orderID string, variantID int64, count int, paidAt time.Time) ([]entity.Key, error)
	MarkRefunded(ctx context.Context, orderID string) error
}

// SettlementScheduler откладывает подтверждение оплаты заказа.
type SettlementScheduler interface {
	Schedule(ctx context.Context, orderID string) error
}

// PaymentSessions хранит короткоживущую платёжную сессию (реквизит для QR/редиректа).
type PaymentSessions interface {
	Save(ctx context.Context, reference, orderID string) error
	OrderID(ctx context.Context, reference string) (string, error)
}

type CreateOrderInput struct {
	VariantID     int64
	Quantity      int
	Contact       string
	PaymentMethod string
	KeyID         *int64
	QuerySecret   string
}

type PaymentInstruction struct {
	ChannelType string
	Reference   string
	OrderID     string
}

// SaleEvent уходит нотификатору после успешного подтверждения оплаты.
type SaleEvent struct {
	OrderID     string
	VariantName string
	Quantity    int
	TotalAmount decimal.Decimal
}

// SettleOutcome — итог одного срабатывания подтверждения.
type SettleOutcome string

const (
	SettleOutcomePaid     SettleOutcome = "paid"
	SettleOutcomeRefunded SettleOutcome = "refunded"
	SettleOutcomeNoop     SettleOutcome = "noop"
)

type Service struct {
	variantRepo  VariantRepository
	keyRepo      KeyRepository
	orderRepo    OrderRepository
	scheduler    SettlementScheduler
	sessions     PaymentSessions
	variantCache *cache.Cache
	sales        chan<- SaleEvent
}

func NewService(
	variantRepo VariantRepository,
	keyRepo KeyRepository,
	orderRepo OrderRepository,
	scheduler SettlementScheduler,
	sessions PaymentSessions,
) *Service {
	return &Service{
		variantRepo:  variantRepo,
		keyRepo:      keyRepo,
		orderRepo:    orderRepo,
		scheduler:    scheduler,
		sessions:     sessions,
		variantCache: cache.New(variantCacheTTL, variantCacheTTL),
	}
}

func (s *Service) WithSales(sales chan<- SaleEvent) *Service {
	s.sales = sales
	return s
}

// CreateOrder создаёт заказ в статусе ожидания оплаты.
// Для заказа с выбранным ключом резервирование ключа и вставка заказа —
// одна атомарная запись; для произвольного заказа ключи не привязываются,
// проверка остатка здесь только рекомендательная.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*entity.Order, error) {
	if input.Quantity < 1 {
		return nil, domain.NewError(errcodes.InvalidQuantity, "quantity must be at least 1")
	}

	variant, err := s.variant(ctx, input.VariantID)
	if err != nil {
		return nil, err
	}

	order := &entity.Order{
		ID:            xid.New().String(),
		VariantID:     variant.ID,
		Quantity:      input.Quantity,
		Status:        entity.OrderStatusPendingPayment,
		Contact:       input.Contact,
		PaymentMethod: input.PaymentMethod,
		QuerySecret:   input.QuerySecret,
		CreatedAt:     time.Now(),
	}

	if input.KeyID != nil {
		// Выбор конкретного ключа: ровно одна штука, проверяем до любых записей
		if input.Quantity != 1 {
			return nil, domain.NewError(errcodes.InvalidQuantity, "selection purchase is limited to quantity 1")
		}

		order.PurchaseMode = entity.PurchaseModeSelection
		order.UnitPrice = pricing.Resolve(variant.Price, variant.CustomMarkup, nil, 1, true)
		order.TotalAmount = pricing.Total(order.UnitPrice, 1)

		if _, err := s.orderRepo.CreateSelection(ctx, order, *input.KeyID); err != nil {
			return nil, fmt.Errorf("orderRepo.CreateSelection: %w", err)
		}

		return order, nil
	}

	available, err := s.keyRepo.CountAvailable(ctx, variant.ID)
	if err != nil {
		return nil, fmt.Errorf("keyRepo.CountAvailable: %w", err)
	}

	if available < input.Quantity {
		return nil, domain.NewError(errcodes.OutOfStock, "not enough keys in stock")
	}

	order.PurchaseMode = entity.PurchaseModeRandom
	order.UnitPrice = pricing.Resolve(variant.Price, decimal.Zero, variant.Wholesale, input.Quantity, false)
	order.TotalAmount = pricing.Total(order.UnitPrice, input.Quantity)

	if err := s.orderRepo.CreateRandom(ctx, order); err != nil {
		return nil, fmt.Errorf("orderRepo.CreateRandom: %w", err)
	}

	return order, nil
}

// Pay запускает отложенное подтверждение оплаты и сразу возвращает
// платёжные реквизиты. Сам запрос не ждёт подтверждения.
func (s *Service) Pay(ctx context.Context, orderID string) (PaymentInstruction, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return PaymentInstruction{}, fmt.Errorf("orderRepo.GetByID: %w", err)
	}

	if !order.IsPending() {
		return PaymentInstruction{}, domain.NewError(errcodes.InvalidOrderState, "order is not awaiting payment")
	}

	instruction := PaymentInstruction{
		ChannelType: order.PaymentMethod,
		Reference:   xid.New().String(),
		OrderID:     order.ID,
	}

	if err := s.sessions.Save(ctx, instruction.Reference, order.ID); err != nil {
		return PaymentInstruction{}, fmt.Errorf("sessions.Save: %w", err)
	}

	if err := s.scheduler.Schedule(ctx, order.ID); err != nil {
		return PaymentInstruction{}, fmt.Errorf("scheduler.Schedule: %w", err)
	}

	return instruction, nil
}

// PaymentStatus разрешает платёжный реквизит в заказ и его статус.
// Так стаб шлюза (или return-url покупателя) узнаёт итог оплаты.
func (s *Service) PaymentStatus(ctx context.Context, reference string) (string, entity.OrderStatus, error) {
	orderID, err := s.sessions.OrderID(ctx, reference)
	if err != nil {
		return "", 0, fmt.Errorf("sessions.OrderID: %w", err)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return "", 0, fmt.Errorf("orderRepo.GetByID: %w", err)
	}

	return order.ID, order.Status, nil
}

// Status возвращает числовой статус заказа. Секрет запроса рекомендательный
// и ядром не проверяется.
func (s *Service) Status(ctx context.Context, orderID string) (entity.OrderStatus, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("orderRepo.GetByID: %w", err)
	}

	return order.Status, nil
}

// Keys отдаёт содержимое ключей оплаченного заказа.
func (s *Service) Keys(ctx context.Context, orderID string) ([]entity.Key, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("orderRepo.GetByID: %w", err)
	}

	if order.Status != entity.OrderStatusPaid {
		return nil, domain.NewError(errcodes.InvalidOrderState, "order is not paid")
	}

	keys, err := s.keyRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("keyRepo.ListByOrder: %w", err)
	}

	return keys, nil
}

// VariantCard — витринная карточка варианта с остатком.
type VariantCard struct {
	Variant   entity.Variant
	Available int
}

// Variants отдаёт страницу каталога с остатками.
func (s *Service) Variants(ctx context.Context, limit, offset int) ([]VariantCard, error) {
	variants, err := s.variantRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("variantRepo.List: %w", err)
	}

	cards := make([]VariantCard, 0, len(variants))
	for i := range variants {
		available, err := s.keyRepo.CountAvailable(ctx, variants[i].ID)
		if err != nil {
			return nil, fmt.Errorf("keyRepo.CountAvailable: %w", err)
		}

		cards = append(cards, VariantCard{Variant: variants[i], Available: available})
	}

	return cards, nil
}

// VariantInfo — витринная карточка варианта с остатком.
func (s *Service) VariantInfo(ctx context.Context, variantID int64) (*entity.Variant, int, error) {
	variant, err := s.variant(ctx, variantID)
	if err != nil {
		return nil, 0, err
	}

	available, err := s.keyRepo.CountAvailable(ctx, variantID)
	if err != nil {
		return nil, 0, fmt.Errorf("keyRepo.CountAvailable: %w", err)
	}

	return variant, available, nil
}

// Settle — идемпотентное срабатывание отложенного подтверждения.
// Заказ перечитывается; всё, что не в ожидании оплаты (включая
// административно удалённый заказ), превращает срабатывание в no-op.
func (s *Service) Settle(ctx context.Context, orderID string) (SettleOutcome, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if domain.CodeIs(err, errcodes.OrderNotFound) {
			logger(ctx).Info("settlement fired for deleted order", "order_id", orderID)
			return SettleOutcomeNoop, nil
		}
		return SettleOutcomeNoop, fmt.Errorf("orderRepo.GetByID: %w", err)
	}

	if !order.IsPending() {
		return SettleOutcomeNoop, nil
	}

	paidAt := time.Now()

	if order.PurchaseMode == entity.PurchaseModeSelection {
		err = s.orderRepo.SettleSelection(ctx, order.ID, paidAt)
	} else {
		_, err = s.orderRepo.SettleRandom(ctx, order.ID, order.VariantID, order.Quantity, paidAt)
	}

	switch {
	case err == nil:
		s.notifySale(ctx, order)
		return SettleOutcomePaid, nil

	case domain.CodeIs(err, errcodes.InsufficientStock):
		// Остатка не хватило в момент подтверждения: заказ уже существует,
		// поэтому не отказ, а возврат
		if refundErr := s.orderRepo.MarkRefunded(ctx, order.ID); refundErr != nil {
			if domain.CodeIs(refundErr, errcodes.InvalidOrderState) {
				return SettleOutcomeNoop, nil
			}
			return SettleOutcomeNoop, fmt.Errorf("orderRepo.MarkRefunded: %w", refundErr)
		}
		return SettleOutcomeRefunded, nil

	case domain.CodeIs(err, errcodes.InvalidOrderState):
		// Статус сменили между перечиткой и записью — дубль или админ
		return SettleOutcomeNoop, nil

	default:
		return SettleOutcomeNoop, err
	}
}

func (s *Service) variant(ctx context.Context, id int64) (*entity.Variant, error) {
	cacheKey := fmt.Sprint(id)

	if cached, found := s.variantCache.Get(cacheKey); found {
		return cached.(*entity.Variant), nil
	}

	variant, err := s.variantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("variantRepo.GetByID: %w", err)
	}

	s.variantCache.Set(cacheKey, variant, cache.DefaultExpiration)

	return variant, nil
}

func (s *Service) notifySale(ctx context.Context, order *entity.Order) {
	if s.sales == nil {
		return
	}

	event := SaleEvent{
		OrderID:     order.ID,
		Quantity:    order.Quantity,
		TotalAmount: order.TotalAmount,
	}

	if variant, err := s.variant(ctx, order.VariantID); err == nil {
		event.VariantName = variant.Name
	}

	select {
	case s.sales <- event:
	default:
		logger(ctx).Warn("sales channel full, dropping event", "order_id", order.ID)
	}
}
