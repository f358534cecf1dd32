package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageType identifies a lifecycle message produced by the engine
type MessageType int32

const (
	MessageNone              MessageType = -1
	MessageWindowAdded       MessageType = 0
	MessageWindowRemoved     MessageType = 1
	MessageWindowCaptured    MessageType = 2
	MessageWindowSizeChanged MessageType = 3
	MessageIconCaptured      MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case MessageNone:
		return "none"
	case MessageWindowAdded:
		return "window_added"
	case MessageWindowRemoved:
		return "window_removed"
	case MessageWindowCaptured:
		return "window_captured"
	case MessageWindowSizeChanged:
		return "window_size_changed"
	case MessageIconCaptured:
		return "icon_captured"
	}
	return fmt.Sprintf("MessageType(%d)", int32(t))
}

// Message is one decoded record of a batch
type Message struct {
	Type   MessageType `json:"type"`
	ID     ID          `json:"id"`
	Handle Handle      `json:"handle"`
}

// MessageSize is the packed size of one record: int32 type, int32 id,
// int64 handle, little endian.
const MessageSize = 16

// ErrShortBatch reports a batch buffer smaller than its advertised count
var ErrShortBatch = errors.New("message batch shorter than message count")

// EncodeMessages packs msgs into the batch wire format.
func EncodeMessages(msgs []Message) []byte {
	buf := make([]byte, len(msgs)*MessageSize)
	for i, m := range msgs {
		rec := buf[i*MessageSize:]
		binary.LittleEndian.PutUint32(rec[0:4], uint32(m.Type))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(m.ID))
		binary.LittleEndian.PutUint64(rec[8:16], uint64(m.Handle))
	}
	return buf
}

// DecodeMessages unpacks count records from raw. When raw holds fewer than
// count records, the complete ones are returned together with ErrShortBatch.
func DecodeMessages(raw []byte, count int) ([]Message, error) {
	if count <= 0 {
		return nil, nil
	}

	var err error
	if avail := len(raw) / MessageSize; avail < count {
		err = fmt.Errorf("%w: have %d, want %d", ErrShortBatch, avail, count)
		count = avail
	}

	msgs := make([]Message, count)
	for i := range msgs {
		rec := raw[i*MessageSize:]
		msgs[i] = Message{
			Type:   MessageType(int32(binary.LittleEndian.Uint32(rec[0:4]))),
			ID:     ID(int32(binary.LittleEndian.Uint32(rec[4:8]))),
			Handle: Handle(binary.LittleEndian.Uint64(rec[8:16])),
		}
	}
	return msgs, err
}

// DrainMessages reads the engine's pending batch and clears the queue. The
// queue is cleared only once the batch has been copied out and decoded.
func DrainMessages(e Engine) ([]Message, error) {
	count := e.MessageCount()
	if count == 0 {
		return nil, nil
	}
	msgs, err := DecodeMessages(e.MessageBatch(), count)
	e.ClearMessages()
	return msgs, err
}
