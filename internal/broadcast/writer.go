package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline     = 5 * time.Second
	messageBufferSize = 16

	// maxInboundFrameSize bounds a single client message; larger frames fail the read and close the connection.
	maxInboundFrameSize = 16 << 10
)

// Conn is the subset of *websocket.Conn the hub needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

type frame struct {
	messageType int
	data        []byte
}

// clientWriter owns all writes to one connection.
type clientWriter struct {
	connection  Conn
	sendChannel chan frame
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	onFailure   func(error)
}

// newClientWriter starts the writer goroutine. onFailure runs on its own goroutine after the
// first failed write.
func newClientWriter(connection Conn, onFailure func(error)) *clientWriter {
	cw := &clientWriter{
		connection:  connection,
		sendChannel: make(chan frame, messageBufferSize),
		doneChannel: make(chan struct{}),
		onFailure:   onFailure,
	}
	cw.wg.Add(1)
	go cw.run()
	return cw
}

// enqueue queues a frame without blocking. It returns false when the buffer is full.
func (cw *clientWriter) enqueue(f frame) bool {
	select {
	case cw.sendChannel <- f:
		return true
	default:
		return false
	}
}

func (cw *clientWriter) run() {
	defer cw.wg.Done()

	for {
		select {
		case f := <-cw.sendChannel:
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(f.messageType, f.data); err != nil {
				if cw.onFailure != nil {
					go cw.onFailure(err)
				}
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)

		// The run goroutine must be gone before the close frame is written.
		cw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		cw.updateWriteDeadline()
		_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = cw.connection.Close()
	})
}

// updateWriteDeadline uses wall-clock time since socket deadlines are enforced by the OS.
func (cw *clientWriter) updateWriteDeadline() {
	_ = cw.connection.SetWriteDeadline(time.Now().Add(writeDeadline))
}
