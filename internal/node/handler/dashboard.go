package handler

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/jmerrifield20/hotelledger/internal/intake"
	"github.com/jmerrifield20/hotelledger/internal/ledger"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultCurrency is the symbol prefixed to booking amounts on the dashboard.
const DefaultCurrency = "₹"

// ParseTemplates loads the embedded dashboard templates.
func ParseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatTime":   FormatTimestamp,
		"formatAmount": FormatAmount,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// DashboardHandler serves the operator web page and its form posts.
type DashboardHandler struct {
	ledger   BookingLedger
	tmpl     *template.Template
	loc      *time.Location
	currency string
	logger   *zap.Logger
}

// NewDashboardHandler creates a DashboardHandler rendering times in loc.
func NewDashboardHandler(l BookingLedger, tmpl *template.Template, loc *time.Location, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		ledger:   l,
		tmpl:     tmpl,
		loc:      loc,
		currency: DefaultCurrency,
		logger:   logger,
	}
}

// Register mounts the dashboard routes.
func (h *DashboardHandler) Register(rg gin.IRoutes) {
	rg.GET("/", h.Index)
	rg.POST("/add_transaction", h.AddTransaction)
	rg.POST("/mine_block", h.MineBlock)
}

type dashboardView struct {
	Snapshot ledger.Snapshot
	Form     intake.BookingForm
	Errors   map[string]string
	Currency string
	Location *time.Location
}

func (h *DashboardHandler) render(c *gin.Context, status int, form intake.BookingForm, fieldErrs map[string]string) {
	s := h.ledger.Snapshot()
	ObserveSnapshot(s)
	if !s.Valid {
		h.logger.Warn("dashboard rendered for compromised ledger", zap.Error(s.Integrity))
	}

	c.Render(status, render.HTML{
		Template: h.tmpl,
		Name:     "dashboard.html",
		Data: dashboardView{
			Snapshot: s,
			Form:     form,
			Errors:   fieldErrs,
			Currency: h.currency,
			Location: h.loc,
		},
	})
}

// Index handles GET /: the ledger dashboard.
func (h *DashboardHandler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, intake.BookingForm{}, nil)
}

// AddTransaction handles POST /add_transaction from the booking form.
func (h *DashboardHandler) AddTransaction(c *gin.Context) {
	var form intake.BookingForm
	if err := c.ShouldBind(&form); err != nil {
		RecordSubmission(false)
		h.render(c, http.StatusBadRequest, form, intake.FromBindError(err).Fields)
		return
	}

	tx, err := intake.ParseBooking(form)
	if err != nil {
		RecordSubmission(false)
		var verr *intake.ValidationError
		if !errors.As(err, &verr) {
			verr = &intake.ValidationError{Fields: map[string]string{"body": err.Error()}}
		}
		h.render(c, http.StatusBadRequest, form, verr.Fields)
		return
	}

	h.ledger.AddTransaction(tx)
	RecordSubmission(true)
	c.Redirect(http.StatusSeeOther, "/")
}

// MineBlock handles POST /mine_block. An empty queue is not an error.
func (h *DashboardHandler) MineBlock(c *gin.Context) {
	if b, ok := h.ledger.Mine(); ok {
		RecordBlockMined(b)
	}
	c.Redirect(http.StatusSeeOther, "/")
}
