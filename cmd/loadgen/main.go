// Command loadgen drives a running exchange server with a batch of
// synthetic orders and reports the execution reports it receives back.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ratikiyer/hft-exchange/internal/common"
	exchangeNet "github.com/ratikiyer/hft-exchange/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the exchange order-entry server")
	symbol := flag.String("symbol", "AAPL", "symbol to trade")
	orders := flag.Int("orders", 100, "number of orders to send")
	seed := flag.Int64("seed", 1, "random seed for synthetic order generation")
	sideMix := flag.Float64("buy-fraction", 0.5, "fraction of generated orders that are buys")
	typeStr := flag.String("type", "limit", "order type: limit, market, or ioc")
	minPrice := flag.Uint("min-price", 90, "minimum limit price in ticks")
	maxPrice := flag.Uint("max-price", 110, "maximum limit price in ticks")
	minQty := flag.Uint("min-qty", 1, "minimum order quantity")
	maxQty := flag.Uint("max-qty", 50, "maximum order quantity")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("unable to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go readReports(conn, done)

	otype := common.Limit
	switch strings.ToLower(*typeStr) {
	case "market":
		otype = common.Market
	case "ioc":
		otype = common.IOC
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *orders; i++ {
		side := common.Buy
		if rng.Float64() >= *sideMix {
			side = common.Sell
		}
		price := uint32(*minPrice) + uint32(rng.Intn(int(*maxPrice-*minPrice)+1))
		qty := uint32(*minQty) + uint32(rng.Intn(int(*maxQty-*minQty)+1))
		id := exchangeNet.NewOrderID()
		ts := uint64(i)

		frame := exchangeNet.EncodeNewOrder(id, *symbol, side, otype, price, qty, ts)
		if _, err := conn.Write(frame); err != nil {
			log.Printf("order %d: write failed: %v", i, err)
			continue
		}
		fmt.Printf("-> sent %s %s %d@%d id=%s\n", side, *symbol, qty, price, id)
		time.Sleep(time.Millisecond)
	}

	fmt.Fprintln(os.Stderr, "all orders sent, waiting 2s for trailing reports")
	time.Sleep(2 * time.Second)
	close(done)
}

// readReports decodes and prints ExecutionReport/error frames until the
// connection closes or done is signalled.
func readReports(conn net.Conn, done chan struct{}) {
	r := bufio.NewReader(conn)
	header := make([]byte, exchangeNet.ReportFixedHeaderLen())
	for {
		select {
		case <-done:
			return
		default:
		}

		if _, err := io.ReadFull(r, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			return
		}

		msgType := exchangeNet.ReportMessageType(header[0])
		side := common.Side(header[1])
		fillPx := binary.BigEndian.Uint32(header[2:6])
		fillQty := binary.BigEndian.Uint32(header[6:10])
		leavesQty := binary.BigEndian.Uint32(header[10:14])
		var id common.OrderID
		copy(id[:], header[14:14+common.OrderIDLen])
		off := 14 + common.OrderIDLen
		reject := binary.BigEndian.Uint16(header[off:off+2]) != 0
		off += 2
		textLen := binary.BigEndian.Uint32(header[off : off+4])

		text := ""
		if textLen > 0 {
			buf := make([]byte, textLen)
			if _, err := io.ReadFull(r, buf); err != nil {
				log.Printf("error reading report text: %v", err)
				return
			}
			text = string(buf)
		}

		if msgType == exchangeNet.ErrorReportMsg || reject {
			fmt.Printf("<- [REJECT] id=%s text=%q\n", id, text)
			continue
		}
		fmt.Printf("<- [FILL] id=%s side=%s px=%d qty=%d leaves=%d\n", id, side, fillPx, fillQty, leavesQty)
	}
}
