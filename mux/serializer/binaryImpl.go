package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dMux/mux/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency. The raw output is base64 armored for
// the frame payload.
func NewBinarySerializer() ISerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements ISerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasBody byte = 1 << 0
	hasErr  byte = 1 << 1
	hasMeta byte = 1 << 2
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 2 // Start after MsgType and flags

	// Handle Body
	if msg.Body != nil {
		flags |= hasBody
		bodyLen := len(msg.Body)

		// Write body length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(bodyLen))
		pos += 4

		// Write body data
		if bodyLen > 0 {
			copy(result[pos:pos+bodyLen], msg.Body)
			pos += bodyLen
		}
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		errBytes := []byte(msg.Err)
		errLen := len(errBytes)

		// Write error length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(errLen))
		pos += 4

		// Write error data
		copy(result[pos:pos+errLen], errBytes)
		pos += errLen
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		metaLen := len(msg.Meta)

		// Write meta length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(metaLen))
		pos += 4

		// Write meta data
		if metaLen > 0 {
			copy(result[pos:pos+metaLen], msg.Meta)
			pos += metaLen
		}
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return armor(result), nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	data, err := dearmor(data)
	if err != nil {
		return err
	}

	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := data[1]

	// Initialize read position
	pos := 2

	// Read Body if present
	if flags&hasBody != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for body length")
		}

		// Read body length
		bodyLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(bodyLen) > len(data) {
			return fmt.Errorf("data too short for body data")
		}

		// Read body data - allocate only if needed
		if msg.Body == nil || cap(msg.Body) < int(bodyLen) {
			msg.Body = make([]byte, bodyLen)
		} else {
			msg.Body = msg.Body[:bodyLen]
		}

		if bodyLen > 0 {
			copy(msg.Body, data[pos:pos+int(bodyLen)])
		}
		pos += int(bodyLen)
	} else {
		msg.Body = nil
	}

	// Read Err if present
	if flags&hasErr != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for error length")
		}

		// Read error length
		errLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(errLen) > len(data) {
			return fmt.Errorf("data too short for error data")
		}

		// Read error data
		msg.Err = string(data[pos : pos+int(errLen)])
		pos += int(errLen)
	} else {
		msg.Err = ""
	}

	// Read Meta if present
	if flags&hasMeta != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for meta length")
		}

		// Read meta length
		metaLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(metaLen) > len(data) {
			return fmt.Errorf("data too short for meta data")
		}

		// Read metadata - allocate only if needed
		if msg.Meta == nil || cap(msg.Meta) < int(metaLen) {
			msg.Meta = make([]byte, metaLen)
		} else {
			msg.Meta = msg.Meta[:metaLen]
		}

		if metaLen > 0 {
			copy(msg.Meta, data[pos:pos+int(metaLen)])
		}
		pos += int(metaLen)
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization (before armoring)
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	// Add sizes for fields that require length encoding
	if msg.Body != nil {
		size += 4 + len(msg.Body) // 4 bytes for length + body bytes
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta) // 4 bytes for length + meta bytes
	}

	return size
}
