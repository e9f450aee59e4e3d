package engine

import (
	"context"
	"testing"
	"time"

	"concert_manager/audit"
	"concert_manager/database"
	"concert_manager/model"
	"concert_manager/payment"
	"concert_manager/qrtoken"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database limited to one connection
// so concurrent test goroutines serialize the way row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.InitializeResult), args.Error(1)
}

func (m *mockGateway) Verify(ctx context.Context, reference string) (*payment.VerifyResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.VerifyResult), args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundResult), args.Error(1)
}

func (m *mockGateway) CreateSubaccount(ctx context.Context, req payment.CreateSubaccountRequest) (*payment.CreateSubaccountResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CreateSubaccountResult), args.Error(1)
}

func (m *mockGateway) VerifySignature(rawBody []byte, signature string) bool {
	return m.Called(rawBody, signature).Bool(0)
}

func okInit(reference string) *payment.InitializeResult {
	return &payment.InitializeResult{
		OK:               true,
		AuthorizationURL: "https://checkout.test/" + reference,
		Reference:        reference,
		AccessCode:       "access_" + reference,
	}
}

type testEnv struct {
	db      *gorm.DB
	gateway *mockGateway
	engine  *TransactionEngine
	codec   *qrtoken.Codec
	event   model.Event
	tier    model.TicketTier
}

// newTestEnv seeds one published event with a single tier.
func newTestEnv(t *testing.T, tierQuantity int, price int64, maxPerUser int) *testEnv {
	t.Helper()
	db := newTestDB(t)

	organizer := model.Organizer{UserID: 900, BusinessName: "Org", PlatformFeePercent: 10, SubaccountCode: "ACCT_org"}
	require.NoError(t, db.Create(&organizer).Error)

	event := model.Event{
		OrganizerID: organizer.ID,
		Title:       "Test Concert",
		Status:      model.EventPublished,
		EventDate:   time.Now().AddDate(0, 1, 0),
	}
	require.NoError(t, db.Create(&event).Error)

	tier := model.TicketTier{
		EventID:    event.ID,
		Name:       "Regular",
		Price:      price,
		Quantity:   tierQuantity,
		MaxPerUser: maxPerUser,
	}
	require.NoError(t, db.Create(&tier).Error)

	gw := new(mockGateway)
	codec := qrtoken.NewCodec("test-qr-secret")
	eng := NewTransactionEngine(db, gw, codec, audit.NewSyncEmitter(db), Options{
		OrganizerPercent: 90,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    10 * time.Millisecond,
		MaxRetries:       3,
		GatewayTimeout:   time.Second,
	})

	return &testEnv{db: db, gateway: gw, engine: eng, codec: codec, event: event, tier: tier}
}

func buyer(id uint) model.Actor {
	return model.Actor{UserID: id, Email: "buyer@example.com", Role: model.RoleUser}
}

func (env *testEnv) purchase(t *testing.T, actor model.Actor, quantity int, key string) *InitiateResult {
	t.Helper()
	env.gateway.On("Initialize", mock.Anything, mock.Anything).Return(okInit("any"), nil).Once()
	result, err := env.engine.Initiate(context.Background(), actor, model.PurchaseInput{
		EventID: env.event.ID, TierID: env.tier.ID, Quantity: quantity,
	}, key, model.ClientMeta{IP: "127.0.0.1"})
	require.NoError(t, err)
	return result
}

func successVerify(amount int64, platformShare int64) *payment.VerifyResult {
	result := &payment.VerifyResult{
		OK:          true,
		Status:      "success",
		AmountMinor: amount,
		Channel:     "card",
	}
	if platformShare > 0 {
		result.Subaccount = &payment.SubaccountShare{Code: "ACCT_org", SharedAmount: platformShare}
	}
	return result
}

func (env *testEnv) reloadTier(t *testing.T) model.TicketTier {
	t.Helper()
	var tier model.TicketTier
	require.NoError(t, env.db.First(&tier, "id = ?", env.tier.ID).Error)
	return tier
}

func (env *testEnv) reloadTxn(t *testing.T, id uint) model.Transaction {
	t.Helper()
	var txn model.Transaction
	require.NoError(t, env.db.First(&txn, "id = ?", id).Error)
	return txn
}
