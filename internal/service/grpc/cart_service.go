package grpcsvc

import (
	"context"
	"errors"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CartServiceName — полное имя gRPC-сервиса корзины.
const CartServiceName = "storefront.v1.CartService"

// Поля сообщений CartService.
const (
	FieldSessionID = "session_id"
	FieldProductID = "product_id"
	FieldQuantity  = "quantity"
	FieldOpen      = "open"
)

// CartServiceServer — серверная часть CartService. Запросы и ответы
// передаются как google.protobuf.Struct.
type CartServiceServer interface {
	GetCart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateQuantity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearCart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetOpen(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type cartCall func(CartServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call cartCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CartServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CartServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CartServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CartServiceDesc описывает CartService для grpc.Server.
var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: CartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetCart", CartServiceServer.GetCart),
		unaryMethod("AddItem", CartServiceServer.AddItem),
		unaryMethod("UpdateQuantity", CartServiceServer.UpdateQuantity),
		unaryMethod("RemoveItem", CartServiceServer.RemoveItem),
		unaryMethod("ClearCart", CartServiceServer.ClearCart),
		unaryMethod("SetOpen", CartServiceServer.SetOpen),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/cart_service.proto",
}

// RegisterCartServiceServer регистрирует реализацию на сервере.
func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

// CartService реализует CartServiceServer поверх корзин сессий.
type CartService struct {
	catalog domain.Catalog
	carts   *cart.Sessions
	logger  *log.Entry
}

// NewCartService конструирует сервис с зависимостями.
func NewCartService(catalog domain.Catalog, carts *cart.Sessions, logger *log.Entry) *CartService {
	if logger == nil {
		logger = log.WithField("component", "cart-grpc")
	}
	return &CartService{catalog: catalog, carts: carts, logger: logger}
}

// GetCart возвращает корзину сессии.
func (s *CartService) GetCart(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	store, err := s.store(req)
	if err != nil {
		return nil, err
	}
	return cartResponse(store)
}

// AddItem добавляет товар; quantity по умолчанию 1.
func (s *CartService) AddItem(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	store, err := s.store(req)
	if err != nil {
		return nil, err
	}
	productID, err := requiredString(req, FieldProductID)
	if err != nil {
		return nil, err
	}
	product, ok := s.catalog.GetProductByID(productID)
	if !ok {
		return nil, status.Error(codes.NotFound, domain.ErrProductNotFound.Error())
	}
	quantity, err := optionalInt(req, FieldQuantity, 1)
	if err != nil {
		return nil, err
	}
	if err := store.AddToCart(product, quantity); err != nil {
		return nil, toStatus(err)
	}
	return cartResponse(store)
}

// UpdateQuantity задаёт количество; quantity <= 0 удаляет позицию.
func (s *CartService) UpdateQuantity(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	store, err := s.store(req)
	if err != nil {
		return nil, err
	}
	productID, err := requiredString(req, FieldProductID)
	if err != nil {
		return nil, err
	}
	if _, ok := req.GetFields()[FieldQuantity]; !ok {
		return nil, status.Error(codes.InvalidArgument, "quantity is required")
	}
	quantity, err := optionalInt(req, FieldQuantity, 0)
	if err != nil {
		return nil, err
	}
	if err := store.UpdateQuantity(productID, quantity); err != nil {
		return nil, toStatus(err)
	}
	return cartResponse(store)
}

// RemoveItem удаляет позицию; отсутствующий товар не ошибка.
func (s *CartService) RemoveItem(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	store, err := s.store(req)
	if err != nil {
		return nil, err
	}
	productID, err := requiredString(req, FieldProductID)
	if err != nil {
		return nil, err
	}
	store.RemoveFromCart(productID)
	return cartResponse(store)
}

// ClearCart очищает позиции корзины.
func (s *CartService) ClearCart(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	store, err := s.store(req)
	if err != nil {
		return nil, err
	}
	store.ClearCart()
	return cartResponse(store)
}

// SetOpen меняет признак открытой корзины.
func (s *CartService) SetOpen(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	store, err := s.store(req)
	if err != nil {
		return nil, err
	}
	value, ok := req.GetFields()[FieldOpen]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "open is required")
	}
	if _, isBool := value.GetKind().(*structpb.Value_BoolValue); !isBool {
		return nil, status.Error(codes.InvalidArgument, "open must be a boolean")
	}
	store.SetIsCartOpen(value.GetBoolValue())
	return cartResponse(store)
}

func (s *CartService) store(req *structpb.Struct) (*cart.Store, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	sessionID, err := requiredString(req, FieldSessionID)
	if err != nil {
		return nil, err
	}
	store, err := s.carts.Get(sessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return store, nil
}

func requiredString(req *structpb.Struct, field string) (string, error) {
	value := strings.TrimSpace(req.GetFields()[field].GetStringValue())
	if value == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return value, nil
}

func optionalInt(req *structpb.Struct, field string, fallback int) (int, error) {
	value, ok := req.GetFields()[field]
	if !ok {
		return fallback, nil
	}
	number, isNumber := value.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", field)
	}
	n := number.NumberValue
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", field)
	}
	return int(n), nil
}

func cartResponse(store *cart.Store) (*structpb.Struct, error) {
	snapshot := store.Snapshot()
	items := make([]any, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, map[string]any{
			"product_id":       item.Product.ID,
			"name":             item.Product.Name,
			"price_minor":      item.Product.PriceMinor,
			"quantity":         item.Quantity,
			"line_total_minor": item.TotalMinor(),
		})
	}
	resp, err := structpb.NewStruct(map[string]any{
		"key":            store.Key(),
		"items":          items,
		"total_items":    snapshot.TotalItems,
		"subtotal_minor": snapshot.Subtotal,
		"currency":       domain.Currency,
		"is_open":        snapshot.IsOpen,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode cart")
	}
	return resp, nil
}

// toStatus переводит доменную ошибку в gRPC status.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrSessionRequired),
		errors.Is(err, domain.ErrProductRequired),
		errors.Is(err, domain.ErrQuantityInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// CartServiceClient вызывает CartService по соединению.
type CartServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCartServiceClient создаёт клиента CartService.
func NewCartServiceClient(cc grpc.ClientConnInterface) *CartServiceClient {
	return &CartServiceClient{cc: cc}
}

// Call выполняет unary-вызов метода CartService.
func (c *CartServiceClient) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CartServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var _ CartServiceServer = (*CartService)(nil)
