package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	// GenesisData is the sentinel payload carried by the genesis block.
	GenesisData = "Genesis Block"

	// GenesisPreviousHash is the previous-hash placeholder of the genesis block.
	GenesisPreviousHash = "0"
)

// Transaction is a single hotel booking awaiting or holding a place in a block.
type Transaction struct {
	CustomerName string `json:"customer_name" yaml:"customer_name"`
	RoomNumber   string `json:"room_number" yaml:"room_number"`
	CheckIn      string `json:"check_in" yaml:"check_in"`
	CheckOut     string `json:"check_out" yaml:"check_out"`
	Amount       Amount `json:"amount" yaml:"amount"`
}

// Amount is a booking amount kept as the decimal text it was submitted as.
// The text, not a parsed number, is what gets hashed.
type Amount string

// Float64 parses the amount.
func (a Amount) Float64() (float64, error) {
	return strconv.ParseFloat(string(a), 64)
}

func (a Amount) String() string { return string(a) }

// MarshalJSON encodes the amount as a JSON string so the text survives
// round trips unchanged.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts a JSON string or a bare number literal; a literal is
// kept exactly as written.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}
	*a = Amount(n)
	return nil
}

// Payload is the data section of a block: the genesis sentinel or an
// ordered batch of transactions.
type Payload struct {
	Genesis      string
	Transactions []Transaction
}

// TransactionsPayload wraps txs as a block payload.
func TransactionsPayload(txs []Transaction) Payload {
	return Payload{Transactions: txs}
}

// GenesisPayload returns the sentinel payload of the genesis block.
func GenesisPayload() Payload {
	return Payload{Genesis: GenesisData}
}

// IsGenesis reports whether p is a sentinel payload.
func (p Payload) IsGenesis() bool { return p.Genesis != "" }

// Len returns the number of transactions carried.
func (p Payload) Len() int { return len(p.Transactions) }

func (p Payload) clone() Payload {
	if p.Transactions == nil {
		return Payload{Genesis: p.Genesis}
	}
	txs := make([]Transaction, len(p.Transactions))
	copy(txs, p.Transactions)
	return Payload{Genesis: p.Genesis, Transactions: txs}
}

// MarshalJSON encodes the sentinel as a JSON string and a batch as an array.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.IsGenesis() {
		return json.Marshal(p.Genesis)
	}
	if p.Transactions == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Transactions)
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var sentinel string
	if err := json.Unmarshal(data, &sentinel); err == nil {
		*p = Payload{Genesis: sentinel}
		return nil
	}
	var txs []Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	*p = Payload{Transactions: txs}
	return nil
}

// MarshalYAML mirrors MarshalJSON for yaml.v3 encoders.
func (p Payload) MarshalYAML() (any, error) {
	if p.IsGenesis() {
		return p.Genesis, nil
	}
	if p.Transactions == nil {
		return []Transaction{}, nil
	}
	return p.Transactions, nil
}

// Block is one sealed ledger record.
type Block struct {
	Index        int     `json:"index" yaml:"index"`
	Timestamp    float64 `json:"timestamp" yaml:"timestamp"` // Unix seconds
	Data         Payload `json:"data" yaml:"data"`
	PreviousHash string  `json:"previous_hash" yaml:"previous_hash"`
	Hash         string  `json:"hash" yaml:"hash"`
}

// NewBlock builds a block and seals it with its digest.
func NewBlock(index int, timestamp float64, data Payload, previousHash string) *Block {
	b := &Block{
		Index:        index,
		Timestamp:    timestamp,
		Data:         data,
		PreviousHash: previousHash,
	}
	b.Hash = b.RecomputeHash()
	return b
}

// RecomputeHash derives the digest from the block's stored fields, ignoring Hash.
func (b *Block) RecomputeHash() string {
	h := sha256.New()
	h.Write(canonicalBlock(b)) //nolint:errcheck
	return hex.EncodeToString(h.Sum(nil))
}

// IsGenesis reports whether b carries the genesis sentinel.
func (b *Block) IsGenesis() bool { return b.Data.IsGenesis() }

// Transactions returns a copy of the block's transactions; nil for genesis.
func (b *Block) Transactions() []Transaction {
	return b.Data.clone().Transactions
}

// Time converts the stored Unix timestamp to a time.Time.
func (b *Block) Time() time.Time {
	return UnixSeconds(b.Timestamp)
}

func (b *Block) clone() Block {
	cp := *b
	cp.Data = b.Data.clone()
	return cp
}

// Timestamp converts t to fractional Unix seconds at microsecond resolution.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// UnixSeconds converts fractional Unix seconds back to a time.Time.
func UnixSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*int64(time.Microsecond))
}
