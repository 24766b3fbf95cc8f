package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/hotelledger/internal/intake"
	"github.com/jmerrifield20/hotelledger/internal/ledger"
	"go.uber.org/zap"
)

// BookingLedger is the subset of *ledger.Ledger the HTTP layer drives.
type BookingLedger interface {
	AddTransaction(tx ledger.Transaction)
	Mine() (*ledger.Block, bool)
	Verify() error
	Block(index int) (ledger.Block, error)
	Chain() []ledger.Block
	Pending() []ledger.Transaction
	Snapshot() ledger.Snapshot
	Tamper(index int, edit func(*ledger.Block)) error
}

// LedgerHandler exposes the booking chain as a JSON API.
type LedgerHandler struct {
	ledger      BookingLedger
	allowTamper bool
	logger      *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(l BookingLedger, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: l, logger: logger}
}

// EnableTamper mounts the tamper endpoint on the next Register call.
func (h *LedgerHandler) EnableTamper() {
	h.allowTamper = true
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/verify", h.Verify)
		l.GET("/blocks", h.ListBlocks)
		l.GET("/blocks/:idx", h.GetBlock)
		l.GET("/pending", h.ListPending)
		l.POST("/transactions", h.SubmitTransaction)
		l.POST("/mine", h.Mine)
		if h.allowTamper {
			l.POST("/blocks/:idx/tamper", h.Tamper)
		}
	}
}

// Overview handles GET /ledger: chain length, tip hash, queue size and validity.
func (h *LedgerHandler) Overview(c *gin.Context) {
	s := h.ledger.Snapshot()
	ObserveSnapshot(s)

	c.JSON(http.StatusOK, gin.H{
		"blocks":         len(s.Chain),
		"root":           s.Root,
		"pending":        len(s.Pending),
		"total_bookings": s.TotalBookings,
		"valid":          s.Valid,
	})
}

// Verify handles GET /ledger/verify: walks the full chain and reports integrity.
func (h *LedgerHandler) Verify(c *gin.Context) {
	err := h.ledger.Verify()
	if err == nil {
		hotelChainValid.Set(1)
		c.JSON(http.StatusOK, gin.H{"valid": true})
		return
	}

	hotelChainValid.Set(0)
	h.logger.Warn("ledger integrity check failed", zap.Error(err))
	resp := gin.H{"valid": false, "error": err.Error()}
	var ie *ledger.IntegrityError
	if errors.As(err, &ie) {
		resp["index"] = ie.Index
	}
	c.JSON(http.StatusOK, resp)
}

// ListBlocks handles GET /ledger/blocks: the full chain in order.
func (h *LedgerHandler) ListBlocks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"blocks": h.ledger.Chain()})
}

// GetBlock handles GET /ledger/blocks/:idx: returns a single block.
func (h *LedgerHandler) GetBlock(c *gin.Context) {
	idx, ok := parseIndex(c)
	if !ok {
		return
	}

	b, err := h.ledger.Block(idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListPending handles GET /ledger/pending: bookings waiting for the next block.
func (h *LedgerHandler) ListPending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transactions": h.ledger.Pending()})
}

// SubmitTransaction handles POST /ledger/transactions.
func (h *LedgerHandler) SubmitTransaction(c *gin.Context) {
	var form intake.BookingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		RecordSubmission(false)
		verr := intake.FromBindError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
		return
	}

	tx, err := intake.ParseBooking(form)
	if err != nil {
		RecordSubmission(false)
		var verr *intake.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.ledger.AddTransaction(tx)
	RecordSubmission(true)

	pending := len(h.ledger.Pending())
	hotelPendingTransactions.Set(float64(pending))
	c.JSON(http.StatusCreated, gin.H{
		"transaction": tx,
		"pending":     pending,
	})
}

// Mine handles POST /ledger/mine: seals the pending queue into a block.
func (h *LedgerHandler) Mine(c *gin.Context) {
	b, ok := h.ledger.Mine()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"mined": false})
		return
	}

	RecordBlockMined(b)
	ObserveSnapshot(h.ledger.Snapshot())
	c.JSON(http.StatusCreated, gin.H{"mined": true, "block": b})
}

// TamperRequest lists the stored fields to overwrite. Nil fields are left alone.
type TamperRequest struct {
	Transaction  int            `json:"transaction"`
	CustomerName *string        `json:"customer_name"`
	RoomNumber   *string        `json:"room_number"`
	Amount       *ledger.Amount `json:"amount"`
	PreviousHash *string        `json:"previous_hash"`
}

func (r TamperRequest) editsTransaction() bool {
	return r.CustomerName != nil || r.RoomNumber != nil || r.Amount != nil
}

// Tamper handles POST /ledger/blocks/:idx/tamper. It rewrites stored block
// fields without resealing, so the next verification fails.
func (h *LedgerHandler) Tamper(c *gin.Context) {
	idx, ok := parseIndex(c)
	if !ok {
		return
	}

	var req TamperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Requests are checked against a copy first so a rejected edit never
	// reaches the ledger. Blocks are never removed and their transaction
	// lists never change length, so the check still holds under the lock.
	current, err := h.ledger.Block(idx)
	if errors.Is(err, ledger.ErrBlockNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}
	if err != nil {
		h.logger.Error("tamper", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to modify block"})
		return
	}
	if req.editsTransaction() && (req.Transaction < 0 || req.Transaction >= len(current.Data.Transactions)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction index out of range"})
		return
	}

	err = h.ledger.Tamper(idx, func(b *ledger.Block) {
		if req.PreviousHash != nil {
			b.PreviousHash = *req.PreviousHash
		}
		if !req.editsTransaction() {
			return
		}
		tx := &b.Data.Transactions[req.Transaction]
		if req.CustomerName != nil {
			tx.CustomerName = *req.CustomerName
		}
		if req.RoomNumber != nil {
			tx.RoomNumber = *req.RoomNumber
		}
		if req.Amount != nil {
			tx.Amount = *req.Amount
		}
	})
	if err != nil {
		h.logger.Error("tamper", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to modify block"})
		return
	}

	h.logger.Warn("block tampered via API", zap.Int("index", idx), zap.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{"valid": h.ledger.Verify() == nil})
}

func parseIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return 0, false
	}
	return idx, true
}
