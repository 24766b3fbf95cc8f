package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/hotelledger/internal/config"
	"github.com/jmerrifield20/hotelledger/internal/ledger"
	"github.com/jmerrifield20/hotelledger/internal/node"
	"github.com/jmerrifield20/hotelledger/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startNode runs a real router over an in-memory ledger.
func startNode(t *testing.T, allowTamper bool) (*client.Client, *ledger.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:        5000,
			CORSOrigins: []string{"*"},
			Timezone:    "UTC",
			AllowTamper: allowTamper,
		},
		Log: config.LogConfig{Level: "info"},
	}
	l := ledger.New()
	router, err := node.NewRouter(ctx, cfg, l, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return client.MustNew(srv.URL + "/"), l
}

var booking = client.BookingRequest{
	CustomerName: "Asha Rao",
	RoomNumber:   "101",
	CheckIn:      "2024-03-01",
	CheckOut:     "2024-03-04",
	Amount:       "4500",
}

func TestClient_submitMineAndRead(t *testing.T) {
	c, _ := startNode(t, false)
	ctx := context.Background()

	res, err := c.SubmitBooking(ctx, booking)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pending)
	assert.Equal(t, "Asha Rao", res.Transaction.CustomerName)

	pending, err := c.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	b, err := c.Mine(ctx)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 1, b.Index)

	again, err := c.Mine(ctx)
	require.NoError(t, err)
	assert.Nil(t, again, "empty queue mines nothing")

	ov, err := c.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ov.Blocks)
	assert.Equal(t, 1, ov.TotalBookings)
	assert.Equal(t, b.Hash, ov.Root)
	assert.True(t, ov.Valid)

	got, err := c.Block(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, b.Hash, got.Hash)

	require.NoError(t, c.VerifyLocally(ctx))
}

func TestClient_validationError(t *testing.T) {
	c, _ := startNode(t, false)

	bad := booking
	bad.CheckOut = "2024-02-01"
	_, err := c.SubmitBooking(context.Background(), bad)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, apiErr.Fields, "check_out")
}

func TestClient_blockNotFound(t *testing.T) {
	c, _ := startNode(t, false)

	_, err := c.Block(context.Background(), 42)
	assert.True(t, errors.Is(err, client.ErrNotFound))
}

func TestClient_detectsTamperingLocally(t *testing.T) {
	c, l := startNode(t, true)
	ctx := context.Background()

	_, err := c.SubmitBooking(ctx, booking)
	require.NoError(t, err)
	_, err = c.Mine(ctx)
	require.NoError(t, err)

	require.NoError(t, l.Tamper(1, func(b *ledger.Block) { b.Data.Transactions[0].RoomNumber = "999" }))

	v, err := c.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	require.NotNil(t, v.Index)
	assert.Equal(t, 1, *v.Index)

	err = c.VerifyLocally(ctx)
	var ie *client.IntegrityError
	require.True(t, errors.As(err, &ie), "expected *client.IntegrityError, got %v", err)
	assert.Equal(t, 1, ie.Index)
	assert.ErrorIs(t, err, client.ErrHashMismatch)
}

func TestClient_amountKeptAsSubmitted(t *testing.T) {
	c, _ := startNode(t, false)
	ctx := context.Background()

	req := booking
	req.Amount = "4500.50"
	res, err := c.SubmitBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount("4500.50"), res.Transaction.Amount)

	b, err := c.Mine(ctx)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, ledger.Amount("4500.50"), b.Data.Transactions[0].Amount)
	assert.NoError(t, c.VerifyLocally(ctx))
}

func TestVerifyChain(t *testing.T) {
	genesis := ledger.NewBlock(0, 1700000000, ledger.GenesisPayload(), ledger.GenesisPreviousHash)
	next := ledger.NewBlock(1, 1700000001, ledger.TransactionsPayload([]client.Transaction{{CustomerName: "x"}}), genesis.Hash)

	assert.NoError(t, client.VerifyChain([]client.Block{*genesis, *next}))
	assert.Error(t, client.VerifyChain(nil))

	orphan := ledger.NewBlock(1, 1700000001, ledger.TransactionsPayload(nil), "elsewhere")
	assert.ErrorIs(t, client.VerifyChain([]client.Block{*genesis, *orphan}), client.ErrBrokenLink)
}

func TestNew_requiresURL(t *testing.T) {
	_, err := client.New("")
	assert.Error(t, err)

	_, err = client.New("http://localhost:5000", client.WithTimeout(0))
	assert.Error(t, err)
}
