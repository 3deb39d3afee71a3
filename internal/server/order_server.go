package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"cardshop/internal/domain"
	"cardshop/internal/domain/entity"
	service "cardshop/internal/domain/service/order"
	"cardshop/pkg/errcodes"
	"cardshop/pkg/httpx/reply"
	"cardshop/pkg/httpx/req"
	"cardshop/pkg/rest"
)

type orderService interface {
	CreateOrder(ctx context.Context, input service.CreateOrderInput) (*entity.Order, error)
	Pay(ctx context.Context, orderID string) (service.PaymentInstruction, error)
	Status(ctx context.Context, orderID string) (entity.OrderStatus, error)
	Keys(ctx context.Context, orderID string) ([]entity.Key, error)
	VariantInfo(ctx context.Context, variantID int64) (*entity.Variant, int, error)
	Variants(ctx context.Context, limit, offset int) ([]service.VariantCard, error)
	PaymentStatus(ctx context.Context, reference string) (string, entity.OrderStatus, error)
}

type OrderServer struct {
	orderService orderService
}

func NewOrderServer(orderService orderService) OrderServer {
	return OrderServer{
		orderService: orderService,
	}
}

func (s OrderServer) postV1Order(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.CreateOrderRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	order, err := s.orderService.CreateOrder(ctx, newCreateOrderInput(request))
	if err != nil {
		return fmt.Errorf("orderService.CreateOrder: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTOrder(order))

	return nil
}

func (s OrderServer) postV1OrderPay(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	instruction, err := s.orderService.Pay(ctx, r.PathValue("id"))
	if err != nil {
		return fmt.Errorf("orderService.Pay: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTPaymentInstruction(instruction))

	return nil
}

func (s OrderServer) getV1OrderStatus(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	status, err := s.orderService.Status(ctx, r.PathValue("id"))
	if err != nil {
		return fmt.Errorf("orderService.Status: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.OrderStatusResponse{Status: int(status)})

	return nil
}

func (s OrderServer) getV1OrderKeys(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	orderID := r.PathValue("id")

	keys, err := s.orderService.Keys(ctx, orderID)
	if err != nil {
		return fmt.Errorf("orderService.Keys: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTOrderKeys(orderID, keys))

	return nil
}

func (s OrderServer) getV1Payment(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	orderID, status, err := s.orderService.PaymentStatus(ctx, r.PathValue("reference"))
	if err != nil {
		return fmt.Errorf("orderService.PaymentStatus: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.PaymentStatusResponse{
		OrderID: orderID,
		Status:  int(status),
	})

	return nil
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

func (s OrderServer) getV1Variants(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	limit := queryInt(r, "limit", defaultPageLimit)
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	cards, err := s.orderService.Variants(ctx, limit, offset)
	if err != nil {
		return fmt.Errorf("orderService.Variants: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTVariants(cards))

	return nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return value
}

func (s OrderServer) getV1Variant(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	variantID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return domain.NewError(errcodes.InvalidVariantID, "variant id must be an integer")
	}

	variant, available, err := s.orderService.VariantInfo(ctx, variantID)
	if err != nil {
		return fmt.Errorf("orderService.VariantInfo: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTVariant(variant, available))

	return nil
}
