// Package net is the TCP transport and binary wire codec between clients
// and the MatchingEngine: framing, the NOS/CancelOrder/Report record
// layouts, and the on-wire form of order submission and execution reporting.
package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/ratikiyer/hft-exchange/internal/common"
	"github.com/ratikiyer/hft-exchange/internal/engine"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

// MessageType tags an inbound client message.
type MessageType uint16

const (
	NewOrder MessageType = iota
	CancelOrder
	LogBook
)

// ReportMessageType tags an outbound server message.
type ReportMessageType uint8

const (
	ExecutionReportMsg ReportMessageType = iota
	ErrorReportMsg
)

// Wire layout for a NewOrderMessage, field-for-field:
//
//	TypeOf     uint16
//	OrderID    [16]byte
//	SymbolLen  uint8
//	Side       uint8
//	Type       uint8
//	Price      uint32
//	Qty        uint32
//	Timestamp  uint64
//	Symbol     []byte (SymbolLen bytes)
const (
	baseMessageHeaderLen = 2
	newOrderFixedLen     = common.OrderIDLen + 1 + 1 + 1 + 4 + 4 + 8
	cancelOrderFixedLen  = common.OrderIDLen + 1 // id + symbol len
	reportFixedHeaderLen = 1 + 1 + 4 + 4 + 4 + common.OrderIDLen + 2 + 4
	maxSymbolLen         = common.MaxSymbolLen
)

// Message is implemented by every decoded inbound message.
type Message interface {
	GetType() MessageType
}

type NewOrderMessage struct {
	OrderID common.OrderID
	Symbol  string
	Side    common.Side
	Type    common.OrderType
	Price   uint32
	Qty     uint32
	Ts      uint64
}

func (NewOrderMessage) GetType() MessageType { return NewOrder }

// NOS converts the wire message into the engine's normalized NOS record.
func (m NewOrderMessage) NOS() engine.NOS {
	return engine.NOS{
		OrderID:   m.OrderID,
		Symbol:    m.Symbol,
		Side:      m.Side,
		Type:      m.Type,
		Price:     m.Price,
		Qty:       m.Qty,
		Timestamp: m.Ts,
	}
}

type CancelOrderMessage struct {
	OrderID common.OrderID
	Symbol  string
}

func (CancelOrderMessage) GetType() MessageType { return CancelOrder }

type LogBookMessage struct{}

func (LogBookMessage) GetType() MessageType { return LogBook }

// parseMessage dispatches on the 2-byte type header and decodes the rest of
// the frame.
func parseMessage(msg []byte) (Message, error) {
	if len(msg) < baseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case LogBook:
		return LogBookMessage{}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < newOrderFixedLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	var id common.OrderID
	copy(id[:], msg[0:common.OrderIDLen])
	off := common.OrderIDLen

	symbolLen := int(msg[off])
	off++
	side := common.Side(msg[off])
	off++
	otype := common.OrderType(msg[off])
	off++
	price := binary.BigEndian.Uint32(msg[off : off+4])
	off += 4
	qty := binary.BigEndian.Uint32(msg[off : off+4])
	off += 4
	ts := binary.BigEndian.Uint64(msg[off : off+8])
	off += 8

	if symbolLen > maxSymbolLen || len(msg) < off+symbolLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	symbol := string(msg[off : off+symbolLen])

	return NewOrderMessage{
		OrderID: id,
		Symbol:  symbol,
		Side:    side,
		Type:    otype,
		Price:   price,
		Qty:     qty,
		Ts:      ts,
	}, nil
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < cancelOrderFixedLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	var id common.OrderID
	copy(id[:], msg[0:common.OrderIDLen])
	off := common.OrderIDLen

	symbolLen := int(msg[off])
	off++
	if symbolLen > maxSymbolLen || len(msg) < off+symbolLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	symbol := string(msg[off : off+symbolLen])

	return CancelOrderMessage{OrderID: id, Symbol: symbol}, nil
}

// EncodeNewOrder builds the wire frame for a NewOrderMessage. Used by
// cmd/loadgen.
func EncodeNewOrder(id common.OrderID, symbol string, side common.Side, otype common.OrderType, price, qty uint32, ts uint64) []byte {
	if len(symbol) > maxSymbolLen {
		symbol = symbol[:maxSymbolLen]
	}
	total := baseMessageHeaderLen + newOrderFixedLen + len(symbol)
	buf := make([]byte, total)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	off := 2
	copy(buf[off:off+common.OrderIDLen], id[:])
	off += common.OrderIDLen
	buf[off] = byte(len(symbol))
	off++
	buf[off] = byte(side)
	off++
	buf[off] = byte(otype)
	off++
	binary.BigEndian.PutUint32(buf[off:off+4], price)
	off += 4
	binary.BigEndian.PutUint32(buf[off:off+4], qty)
	off += 4
	binary.BigEndian.PutUint64(buf[off:off+8], ts)
	off += 8
	copy(buf[off:], symbol)
	return buf
}

// EncodeCancelOrder builds the wire frame for a CancelOrderMessage, the
// inverse of parseCancelOrder. cmd/loadgen sends only new orders and does
// not call it.
func EncodeCancelOrder(id common.OrderID, symbol string) []byte {
	if len(symbol) > maxSymbolLen {
		symbol = symbol[:maxSymbolLen]
	}
	total := baseMessageHeaderLen + cancelOrderFixedLen + len(symbol)
	buf := make([]byte, total)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	off := 2
	copy(buf[off:off+common.OrderIDLen], id[:])
	off += common.OrderIDLen
	buf[off] = byte(len(symbol))
	off++
	copy(buf[off:], symbol)
	return buf
}

// Report is the outbound wire record carrying an ExecutionReport or an
// error back to a client.
type Report struct {
	MessageType ReportMessageType
	Side        common.Side
	FillPx      uint32
	FillQty     uint32
	LeavesQty   uint32
	OrderID     common.OrderID
	Reject      bool
	Text        string
}

// Serialize renders r for the wire: fixed header then the variable-length
// text.
func (r *Report) Serialize() []byte {
	text := r.Text
	if len(text) > math.MaxUint16 {
		text = text[:math.MaxUint16]
	}
	total := reportFixedHeaderLen + len(text)
	buf := make([]byte, total)
	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint32(buf[2:6], r.FillPx)
	binary.BigEndian.PutUint32(buf[6:10], r.FillQty)
	binary.BigEndian.PutUint32(buf[10:14], r.LeavesQty)
	copy(buf[14:14+common.OrderIDLen], r.OrderID[:])
	off := 14 + common.OrderIDLen
	reject := uint16(0)
	if r.Reject {
		reject = 1
	}
	binary.BigEndian.PutUint16(buf[off:off+2], reject)
	off += 2
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(text)))
	off += 4
	copy(buf[off:], text)
	return buf
}

// executionReportWire builds the wire Report for an engine.ExecutionReport.
func executionReportWire(side common.Side, r engine.ExecutionReport) []byte {
	rep := Report{
		MessageType: ExecutionReportMsg,
		Side:        side,
		FillPx:      r.FillPx,
		FillQty:     r.FillQty,
		LeavesQty:   r.LeavesQty,
		OrderID:     r.OrderID.ID,
		Reject:      r.Reject,
		Text:        r.Text,
	}
	return rep.Serialize()
}

// errorReportWire builds the wire Report for an out-of-band error, e.g. a
// cancel that failed, or a malformed frame.
func errorReportWire(id common.OrderID, err error) []byte {
	rep := Report{
		MessageType: ErrorReportMsg,
		OrderID:     id,
		Reject:      true,
		Text:        fmt.Sprintf("%v", err),
	}
	return rep.Serialize()
}

// NewOrderID generates a fresh client-style order id. Exposed for
// cmd/loadgen.
func NewOrderID() common.OrderID {
	return uuid.New()
}

// ReportFixedHeaderLen is the byte length of a Report's fixed portion,
// before its variable-length text. Exposed so clients know how many bytes
// to read before they know how many more are coming.
func ReportFixedHeaderLen() int {
	return reportFixedHeaderLen
}
