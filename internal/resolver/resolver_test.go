package resolver

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/adapters"
	"github.com/gardenfi/swapd/internal/types"
)

type fakeOrdersAPI struct {
	mu     sync.Mutex
	orders map[string]*types.Order
}

func newFakeOrdersAPI() *fakeOrdersAPI {
	return &fakeOrdersAPI{orders: make(map[string]*types.Order)}
}

func (f *fakeOrdersAPI) add(order *types.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.OrderHash] = order
}

func (f *fakeOrdersAPI) GetActiveOrders(page, limit uint64) (*types.GetActiveOrdersOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	output := &types.GetActiveOrdersOutput{}
	for _, order := range f.orders {
		if order.Status != types.StatusUnmatched {
			continue
		}
		output.Items = append(output.Items, types.ActiveOrderOutput{
			OrderHash:  order.OrderHash,
			SrcChainID: order.SrcChainID,
			DstChainID: order.DstChainID,
			Order: types.OrderInput{
				MakerAsset: order.MakerAsset,
				TakerAsset: order.TakerAsset,
			},
			Status: order.Status,
		})
	}
	output.Meta.TotalItems = uint64(len(output.Items))
	return output, nil
}

func (f *fakeOrdersAPI) GetOrder(orderHash string) (*types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderHash]
	if !ok {
		return nil, assert.AnError
	}
	clone := *order
	return &clone, nil
}

type recordingAdapter struct {
	chainID uint64
	mu      sync.Mutex
	calls   []adapters.ActionType
}

func (a *recordingAdapter) record(action adapters.ActionType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, action)
}

func (a *recordingAdapter) ChainID() uint64 { return a.chainID }
func (a *recordingAdapter) DeploySrcEscrow(ctx context.Context, action *adapters.OrderAction) error {
	a.record(adapters.DeploySrcEscrow)
	return nil
}
func (a *recordingAdapter) DeployDstEscrow(ctx context.Context, action *adapters.OrderAction) error {
	a.record(adapters.DeployDstEscrow)
	return nil
}
func (a *recordingAdapter) WithdrawSrc(ctx context.Context, action *adapters.OrderAction) error {
	a.record(adapters.WithdrawSrc)
	return nil
}
func (a *recordingAdapter) WithdrawDst(ctx context.Context, action *adapters.OrderAction) error {
	a.record(adapters.WithdrawDst)
	return nil
}
func (a *recordingAdapter) ArbitraryCall(ctx context.Context, action *adapters.OrderAction) error {
	a.record(adapters.ArbitraryCall)
	return nil
}

func testOrder(hash string, status types.OrderStatus) *types.Order {
	return &types.Order{
		OrderHash:    hash,
		SrcChainID:   1,
		DstChainID:   137,
		MakerAsset:   "0x1111111111111111111111111111111111111111",
		TakerAsset:   "0x2222222222222222222222222222222222222222",
		MakingAmount: big.NewInt(100),
		TakingAmount: big.NewInt(99),
		Status:       status,
	}
}

func newTestResolver(t *testing.T, orders OrdersAPI, src, dst *recordingAdapter) *Resolver {
	r, err := New(Config{
		Orders:       orders,
		PollInterval: time.Second,
		ActionTTL:    5 * time.Minute,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)

	r.AddChain(src, []string{"0x1111111111111111111111111111111111111111"})
	r.AddChain(dst, []string{"0x2222222222222222222222222222222222222222"})
	return r
}

func TestResolverDeploysSrcEscrowOnce(t *testing.T) {
	orders := newFakeOrdersAPI()
	orders.add(testOrder("0xaaa", types.StatusUnmatched))

	src := &recordingAdapter{chainID: 1}
	dst := &recordingAdapter{chainID: 137}
	r := newTestResolver(t, orders, src, dst)

	ctx := context.Background()

	// Two ticks inside the TTL window issue exactly one deploy
	require.NoError(t, r.discover())
	r.processTracked(ctx)
	require.NoError(t, r.discover())
	r.processTracked(ctx)

	assert.Equal(t, []adapters.ActionType{adapters.DeploySrcEscrow}, src.calls)
	assert.Empty(t, dst.calls)
}

func TestResolverStatusChangeTriggersNewAction(t *testing.T) {
	orders := newFakeOrdersAPI()
	order := testOrder("0xaaa", types.StatusUnmatched)
	orders.add(order)

	src := &recordingAdapter{chainID: 1}
	dst := &recordingAdapter{chainID: 137}
	r := newTestResolver(t, orders, src, dst)

	ctx := context.Background()
	require.NoError(t, r.discover())
	r.processTracked(ctx)

	// The watcher moved the order forward; the next tick acts on the
	// destination side without waiting out the TTL
	order.Status = types.StatusSourceFilled
	orders.add(order)
	r.processTracked(ctx)

	assert.Equal(t, []adapters.ActionType{adapters.DeploySrcEscrow}, src.calls)
	assert.Equal(t, []adapters.ActionType{adapters.DeployDstEscrow}, dst.calls)
}

func TestResolverSkipsUnsupportedOrders(t *testing.T) {
	orders := newFakeOrdersAPI()
	unsupported := testOrder("0xbbb", types.StatusUnmatched)
	unsupported.MakerAsset = "0x9999999999999999999999999999999999999999"
	orders.add(unsupported)

	src := &recordingAdapter{chainID: 1}
	dst := &recordingAdapter{chainID: 137}
	r := newTestResolver(t, orders, src, dst)

	require.NoError(t, r.discover())
	r.processTracked(context.Background())

	assert.Empty(t, src.calls)
	assert.Empty(t, dst.calls)
}

func TestResolverExpiredCancelsBothSides(t *testing.T) {
	orders := newFakeOrdersAPI()
	orders.add(testOrder("0xccc", types.StatusExpired))

	src := &recordingAdapter{chainID: 1}
	dst := &recordingAdapter{chainID: 137}
	r := newTestResolver(t, orders, src, dst)

	// Expired orders are not on the active page; seed via tracking
	r.cache.Track("0xccc")
	r.processTracked(context.Background())

	assert.Equal(t, []adapters.ActionType{adapters.ArbitraryCall}, src.calls)
	assert.Equal(t, []adapters.ActionType{adapters.ArbitraryCall}, dst.calls)
}

func TestResolverRequiresAdapter(t *testing.T) {
	r, err := New(Config{
		Orders: newFakeOrdersAPI(),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, r.Run(ctx))
}
