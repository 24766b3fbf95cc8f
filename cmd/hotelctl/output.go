package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jmerrifield20/hotelledger/internal/ledger"
	"github.com/jmerrifield20/hotelledger/pkg/client"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

const timeLayout = "2006-01-02 15:04:05"

func validateFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
}

// render writes v as JSON or YAML, or hands a printer to text for the
// human-readable form.
func render(w io.Writer, format string, v any, text func(p *printer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		p := &printer{w: w}
		text(p)
		return p.err
	}
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) success(msg string) { pterm.Success.WithWriter(p.w).Println(msg) }
func (p *printer) info(msg string)    { pterm.Info.WithWriter(p.w).Println(msg) }
func (p *printer) failure(msg string) { pterm.Error.WithWriter(p.w).Println(msg) }

func (p *printer) table(data pterm.TableData) {
	if p.err != nil {
		return
	}
	p.err = pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(p.w).Render()
}

func (p *printer) blocks(blocks []client.Block) {
	data := pterm.TableData{{"INDEX", "TIMESTAMP", "BOOKINGS", "HASH", "PREVIOUS"}}
	for _, b := range blocks {
		data = append(data, []string{
			strconv.Itoa(b.Index),
			ledger.UnixSeconds(b.Timestamp).Local().Format(timeLayout),
			describePayload(b.Data),
			shortHash(b.Hash),
			shortHash(b.PreviousHash),
		})
	}
	p.table(data)
}

func (p *printer) transactions(txs []client.Transaction) {
	data := pterm.TableData{{"#", "CUSTOMER", "ROOM", "CHECK-IN", "CHECK-OUT", "AMOUNT"}}
	for i, tx := range txs {
		data = append(data, []string{
			strconv.Itoa(i),
			tx.CustomerName,
			tx.RoomNumber,
			tx.CheckIn,
			tx.CheckOut,
			formatAmount(tx.Amount),
		})
	}
	p.table(data)
}

func (p *printer) overview(ov *client.Overview) {
	status := "valid"
	if !ov.Valid {
		status = "COMPROMISED"
	}
	p.table(pterm.TableData{
		{"FIELD", "VALUE"},
		{"blocks", strconv.Itoa(ov.Blocks)},
		{"confirmed bookings", strconv.Itoa(ov.TotalBookings)},
		{"pending", strconv.Itoa(ov.Pending)},
		{"root", ov.Root},
		{"status", status},
	})
}

func formatAmount(a ledger.Amount) string {
	v, err := a.Float64()
	if err != nil {
		return a.String()
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func describePayload(d ledger.Payload) string {
	if d.IsGenesis() {
		return d.Genesis
	}
	if d.Len() == 1 {
		tx := d.Transactions[0]
		return fmt.Sprintf("%s (room %s)", tx.CustomerName, tx.RoomNumber)
	}
	return fmt.Sprintf("%d bookings", d.Len())
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
