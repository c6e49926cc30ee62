package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/types"
)

// Orderbook is the interface the HTTP surface depends on
type Orderbook interface {
	SubmitOrder(signed *types.SignedOrderInput) error
	GetOrder(orderHash string) (*types.Order, error)
	GetOrdersByChain(chainID uint64) ([]*types.Order, error)
	GetActiveOrders(page, limit uint64) (*types.GetActiveOrdersOutput, error)
	SubmitSecret(input *types.SecretInput) error
	GetSecret(orderHash string) (*types.SecretResponse, error)
	UpdateOrderField(req *types.UpdateOrderFieldRequest) error
}

// Server is the relayer HTTP API
type Server struct {
	server    *http.Server
	orderbook Orderbook
	logger    *zap.Logger
}

// NewServer creates the relayer API server listening on the given port
func NewServer(port uint16, orderbook Orderbook, logger *zap.Logger) *Server {
	s := &Server{
		orderbook: orderbook,
		logger:    logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	relayer := router.PathPrefix("/relayer").Subrouter()
	relayer.HandleFunc("/submit", s.handleSubmitOrder).Methods(http.MethodPost)
	relayer.HandleFunc("/secret", s.handleSubmitSecret).Methods(http.MethodPost)

	orders := router.PathPrefix("/orders").Subrouter()
	orders.HandleFunc("/active", s.handleActiveOrders).Methods(http.MethodGet)
	orders.HandleFunc("/chain/{chain_id}", s.handleOrdersByChain).Methods(http.MethodGet)
	orders.HandleFunc("/secret/{order_hash}", s.handleGetSecret).Methods(http.MethodGet)
	orders.HandleFunc("/update/{order_hash}", s.handleUpdateOrderField).Methods(http.MethodPost)
	orders.HandleFunc("/{order_hash}", s.handleGetOrder).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      cors(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the routing stack
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting relayer API", zap.String("addr", s.server.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down relayer API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// cors allows browser clients to reach the orderbook from any origin
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
