package audit

import (
	"bufio"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratikiyer/hft-exchange/internal/common"
)

func TestMarshal_LineFormat(t *testing.T) {
	id := uuid.New()
	id2 := uuid.New()
	e := Event{
		Timestamp: 42,
		ID:        id,
		Kind:      Add,
		Price:     100,
		Qty:       10,
		Side:      common.Buy,
		ID2:       id2,
		Price2:    0,
		Qty2:      0,
		Side2:     common.Side(0),
	}

	line := Marshal(e)
	assert.True(t, strings.HasPrefix(string(line), "TIMESTAMP=42 KIND=0 PRICE=100 QTY=10 SIDE=0 PRICE2=0 QTY2=0 SIDE2=0 ORDID="))
	assert.Equal(t, byte('\n'), line[len(line)-1])
	assert.Contains(t, string(line), "ORDID2=")
}

func TestFileSink_WritesEnqueuedEvents(t *testing.T) {
	path := tempAuditPath(t)

	sink, err := NewFileSink(path, 20*time.Millisecond, nil)
	require.NoError(t, err)

	id := uuid.New()
	sink.Enqueue(Event{Timestamp: 1, ID: id, Kind: Add, Price: 50, Qty: 5, Side: common.Buy})

	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	assert.Contains(t, scanner.Text(), "KIND=0")
	assert.Contains(t, scanner.Text(), "PRICE=50")
}

// TestFileSink_FlushesBatchWhileOpen checks that an enqueued event reaches
// the file without closing the sink: the consumer flushes after each batch.
func TestFileSink_FlushesBatchWhileOpen(t *testing.T) {
	path := tempAuditPath(t)

	sink, err := NewFileSink(path, 10*time.Millisecond, nil)
	require.NoError(t, err)
	defer sink.Close()

	sink.Enqueue(Event{Timestamp: 1, ID: uuid.New(), Kind: Cancel, Price: 10, Qty: 1, Side: common.Sell})

	require.Eventually(t, func() bool {
		info, err := os.Stat(path)
		return err == nil && info.Size() > 0
	}, time.Second, 5*time.Millisecond)
}

// TestFileSink_DropsWhenQueueFull constructs a FileSink directly with an
// unstarted consumer so the queue can be driven to capacity deterministically,
// rather than racing a live background drain loop.
func TestFileSink_DropsWhenQueueFull(t *testing.T) {
	counter := &countingCounter{}
	sink := &FileSink{
		events:  make(chan Event, 4),
		dropped: counter,
	}

	for i := 0; i < 8; i++ {
		sink.Enqueue(Event{Timestamp: uint64(i), ID: uuid.New(), Kind: Add, Price: 1, Qty: 1})
	}

	assert.Equal(t, 4, counter.n)
}

type countingCounter struct{ n int }

func (c *countingCounter) Inc() { c.n++ }

func tempAuditPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "audit-*.log")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}
