package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

// newFileTestDB opens a file-backed database with several connections so
// concurrent writers really interleave.
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "billing.db") + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

// fakeSource is an in-memory SubscriptionSource.
type fakeSource struct {
	mu    sync.Mutex
	subs  map[string]*ExternalSubscription
	err   error
	calls int
}

func newFakeSource(subs ...*ExternalSubscription) *fakeSource {
	f := &fakeSource{subs: make(map[string]*ExternalSubscription)}
	for _, s := range subs {
		f.subs[s.ID] = s
	}
	return f
}

func (f *fakeSource) GetSubscription(_ context.Context, id string) (*ExternalSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subs[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", id)
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSource) set(sub *ExternalSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.ID] = sub
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeGateway records checkout and portal requests.
type fakeGateway struct {
	*fakeSource
	checkouts []*CheckoutRequest
	portals   []string
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req *CheckoutRequest) (string, error) {
	g.checkouts = append(g.checkouts, req)
	return "https://checkout.example/" + req.UserID, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	g.portals = append(g.portals, customerID)
	return "https://portal.example/" + customerID, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestService(t *testing.T, db *gorm.DB, gw Gateway, now time.Time) *Service {
	t.Helper()
	repo := NewRepository(db)
	status := NewSubscriptionStatus(repo, DefaultGracePeriod).WithClock(fixedClock{now}.Now)
	usage := NewUsageCounter(repo, nil, zap.NewNop())
	gate := NewQuotaGate(repo, status, DefaultMaxFreeCount)
	return NewService(repo, usage, status, gate, gw, ServiceConfig{AppURL: "https://app.example/"}, zap.NewNop())
}

// signPayload builds a Stripe-Signature header for payload.
func signPayload(payload []byte, secret string, ts time.Time) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}
